package rationale

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

func TestValidate(t *testing.T) {
	v := Validate("bullish")
	require.False(t, v.Valid)
	require.Error(t, v.Err)
	assert.True(t, apierrors.IsValidation(v.Err))
	assert.Contains(t, v.Err.Error(), "7 characters")
	assert.Contains(t, v.Err.Error(), "minimum 20")

	v = Validate("BTC testing $95k support with RSI at 28, expecting bounce")
	assert.True(t, v.Valid)
	assert.NoError(t, v.Err)

	for _, blank := range []string{"", "   ", "\n\t "} {
		v = Validate(blank)
		assert.False(t, v.Valid, "%q", blank)
		assert.Contains(t, v.Err.Error(), "empty")
	}

	// 首尾空白不计入长度
	v = Validate("   seventeen chars   ")
	assert.False(t, v.Valid)
	v = Validate("  exactly twenty chars  ")
	assert.True(t, v.Valid)

	// 超长不报错
	assert.True(t, Validate(strings.Repeat("a", 2000)).Valid)
}

func TestRender(t *testing.T) {
	assert.Equal(t, "BTC at ?", Render("{asset} at {price}", Context{KeyAsset: "BTC"}))

	out := Render("R{round} {asset} {price} x{odds} L{gridLevel} via {strategy} {unknown}", Context{
		KeyRound: "7", KeyAsset: "ETH", KeyPrice: "3500", KeyOdds: "2.5", KeyGridLevel: "-1", KeyStrategy: "value",
	})
	assert.Equal(t, "R7 ETH 3500 x2.5 L-1 via value {unknown}", out)

	// 空值视为缺失
	assert.Equal(t, "? ?", Render("{odds} {round}", Context{KeyOdds: ""}))

	// 替换值里的占位符不会被二次展开
	assert.Equal(t, "{price}", Render("{asset}", Context{KeyAsset: "{price}"}))
}

func TestRenderTruncates(t *testing.T) {
	long := strings.Repeat("x", 600)
	assert.Len(t, Render(long, nil), MaxLength)

	// 模板展开后才截断
	tpl := strings.Repeat("y", 495) + "{asset}"
	out := Render(tpl, Context{KeyAsset: "BITCOIN"})
	assert.Equal(t, MaxLength, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "BITCO"))

	// 按字符而不是字节截断
	multi := strings.Repeat("涨", 501)
	assert.Equal(t, MaxLength, utf8.RuneCountInString(Render(multi, nil)))
}

func TestScoreComponents(t *testing.T) {
	assert.Equal(t, 10, Score(""))
	assert.Equal(t, 10, Score("short"))

	// 40 个字符、单个 token、无领域词
	s40 := strings.Repeat("a", 40)
	assert.Equal(t, 20, Score(s40))

	// 4+ 领域词（重复不计）
	vocab := "rsi rsi RSI macd support resistance"
	assert.Equal(t, 10+0+25, Score(vocab))

	// 2 个领域词
	assert.Equal(t, 10+15, Score("macd and vwap"))
	// 1 个领域词
	assert.Equal(t, 10+5, Score("bearish"))
}

func TestScoreDiversity(t *testing.T) {
	words := func(n int) string {
		out := make([]string, n)
		for i := range out {
			out[i] = "w" + strings.Repeat("q", i)
		}
		return strings.Join(out, " ")
	}
	assert.Equal(t, 0, diversityPoints(uniqueTokens(words(9))))
	assert.Equal(t, 10, diversityPoints(uniqueTokens(words(10))))
	assert.Equal(t, 20, diversityPoints(uniqueTokens(words(15))))
	assert.Equal(t, 25, diversityPoints(uniqueTokens(words(25))))
	// 大小写不敏感
	assert.Equal(t, 1, uniqueTokens("Trend TREND trend"))
}

func TestScoreMaxAndBounds(t *testing.T) {
	rich := "BTC holding support at 95k with RSI oversold near 28, MACD crossing up, volume rising, " +
		"bollinger lower band tagged, funding negative and open interest flat; expecting a reversal " +
		"toward resistance at 97k within the round given improving momentum and liquidity on the order book."
	score := Score(rich)
	assert.Equal(t, 100, score)
	assert.Equal(t, TierDiamond, TierOf(score))

	for _, s := range []string{"", "x", strings.Repeat("word ", 300), rich + rich} {
		sc := Score(s)
		assert.GreaterOrEqual(t, sc, 0)
		assert.LessOrEqual(t, sc, 100)
	}
}

func TestScoreMonotonicInLength(t *testing.T) {
	base := "support "
	prev := -1
	for n := 1; n <= 300; n++ {
		text := strings.Repeat(base, n/len(base)+1)[:n]
		sc := Score(text)
		// 同一份重复文本：token 数只增不减，长度只增不减
		assert.GreaterOrEqual(t, sc, prev, "n=%d", n)
		prev = sc
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := map[int]Tier{
		0: TierNone, 39: TierNone,
		40: TierBronze, 59: TierBronze,
		60: TierSilver, 74: TierSilver,
		75: TierGold, 89: TierGold,
		90: TierDiamond, 100: TierDiamond,
	}
	for score, want := range cases {
		assert.Equal(t, want, TierOf(score), "score=%d", score)
	}
}

func TestAssess(t *testing.T) {
	a := Assess("bullish")
	assert.False(t, a.Valid)
	assert.Equal(t, 7, a.Length)
	assert.Equal(t, 1, a.VocabHits)
	assert.NotEmpty(t, a.Error)
	assert.Equal(t, TierNone, a.Tier)
	assert.Contains(t, a.String(), "score=15")
}
