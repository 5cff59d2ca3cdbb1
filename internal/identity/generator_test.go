package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_GenerateAddress(t *testing.T) {
	gen := NewGenerator("temp-mail.local")

	t.Run("地址形态正确", func(t *testing.T) {
		address, err := gen.GenerateAddress()

		require.NoError(t, err)
		assert.True(t, IsWellFormedAddress(address))
		assert.True(t, strings.HasSuffix(address, "@temp-mail.local"))

		local := strings.SplitN(address, "@", 2)[0]
		assert.Len(t, local, 32) // 16 字节的十六进制表示
		assert.Regexp(t, "^[a-f0-9]{32}$", local)
	})

	t.Run("连续生成不重复", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			address, err := gen.GenerateAddress()
			require.NoError(t, err)
			assert.False(t, seen[address], "duplicate address: %s", address)
			seen[address] = true
		}
	})

	t.Run("域名统一转为小写", func(t *testing.T) {
		upper := NewGenerator("  Temp-Mail.LOCAL ")
		address, err := upper.GenerateAddress()

		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(address, "@temp-mail.local"))
	})
}

func TestGenerator_GenerateAccessKey(t *testing.T) {
	gen := NewGenerator("temp-mail.local")

	t.Run("密钥由12个词表单词组成", func(t *testing.T) {
		key, err := gen.GenerateAccessKey()

		require.NoError(t, err)
		assert.True(t, IsWellFormedAccessKey(key))

		words := strings.Split(key, "-")
		require.Len(t, words, AccessKeyWords)

		valid := make(map[string]bool, WordListSize())
		for _, w := range wordList {
			valid[w] = true
		}
		for _, w := range words {
			assert.True(t, valid[w], "word not in list: %s", w)
		}
	})

	t.Run("连续生成不重复", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			key, err := gen.GenerateAccessKey()
			require.NoError(t, err)
			assert.False(t, seen[key], "duplicate key: %s", key)
			seen[key] = true
		}
	})
}

func TestGenerator_GenerateHexAccessKey(t *testing.T) {
	gen := NewGenerator("temp-mail.local")

	key, err := gen.GenerateHexAccessKey()

	require.NoError(t, err)
	assert.Len(t, key, 64)
	assert.True(t, IsWellFormedAccessKey(key))
}

func TestGenerator_GeneratePair(t *testing.T) {
	gen := NewGenerator("temp-mail.local")

	pair, err := gen.GeneratePair()

	require.NoError(t, err)
	assert.True(t, IsWellFormedAddress(pair.Address))
	assert.True(t, IsWellFormedAccessKey(pair.AccessKey))
	assert.False(t, pair.CreatedAt.IsZero())
}

func TestHashAccessKey(t *testing.T) {
	t.Run("相同输入得到相同摘要", func(t *testing.T) {
		key := "apple-banana-cherry-dragon-eagle-forest-garden-harbor-island-jungle-knight-lemon"

		first := HashAccessKey(key)
		second := HashAccessKey(key)

		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
		assert.Regexp(t, "^[a-f0-9]{64}$", first)
	})

	t.Run("不同输入得到不同摘要", func(t *testing.T) {
		a := HashAccessKey("apple-banana-cherry-dragon-eagle-forest-garden-harbor-island-jungle-knight-lemon")
		b := HashAccessKey("apple-banana-cherry-dragon-eagle-forest-garden-harbor-island-jungle-knight-zebra")

		assert.NotEqual(t, a, b)
	})
}

func TestVerifyAccessKey(t *testing.T) {
	gen := NewGenerator("temp-mail.local")

	key, err := gen.GenerateAccessKey()
	require.NoError(t, err)
	hash := HashAccessKey(key)

	t.Run("正确密钥校验通过", func(t *testing.T) {
		assert.True(t, VerifyAccessKey(key, hash))
	})

	t.Run("错误密钥校验失败", func(t *testing.T) {
		other, err := gen.GenerateAccessKey()
		require.NoError(t, err)

		assert.False(t, VerifyAccessKey(other, hash))
	})

	t.Run("畸形输入不会panic", func(t *testing.T) {
		assert.False(t, VerifyAccessKey("", hash))
		assert.False(t, VerifyAccessKey("not-a-real-key", hash))
		assert.False(t, VerifyAccessKey(key, ""))
		assert.False(t, VerifyAccessKey(key, "short"))
	})

	t.Run("十六进制密钥同样适用", func(t *testing.T) {
		hexKey, err := gen.GenerateHexAccessKey()
		require.NoError(t, err)

		assert.True(t, VerifyAccessKey(hexKey, HashAccessKey(hexKey)))
	})
}
