package rationale

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

const (
	// MinLength 去除首尾空白后的最小长度（字符）
	MinLength = 20
	// MaxLength 渲染结果的截断长度（字符），超长只截断不报错
	MaxLength = 500
	// Missing 上下文缺失时的占位值
	Missing = "?"
)

// 支持的占位符
const (
	KeyRound     = "round"
	KeyPrice     = "price"
	KeyAsset     = "asset"
	KeyOdds      = "odds"
	KeyGridLevel = "gridLevel"
	KeyStrategy  = "strategy"
)

var placeholderKeys = []string{KeyRound, KeyPrice, KeyAsset, KeyOdds, KeyGridLevel, KeyStrategy}

// Context 模板上下文
type Context map[string]string

// Clone 复制一份上下文
func (c Context) Clone() Context {
	out := make(Context, len(c)+3)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Validation 校验结果
type Validation struct {
	Valid bool
	Err   error
}

// Validate 空白或去空白后不足 MinLength 的文本无效。不校验最大长度。
func Validate(text string) Validation {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	if n == 0 {
		return Validation{Err: apierrors.Validationf("commentary", "commentary is empty (length 0, minimum %d characters)", MinLength)}
	}
	if n < MinLength {
		return Validation{Err: apierrors.Validationf("commentary", "commentary too short: %d characters, minimum %d", n, MinLength)}
	}
	return Validation{Valid: true}
}

// Render 替换六个固定占位符，缺失值用 "?"；其它 {xxx} 原样保留；结果截断到 MaxLength。
func Render(template string, ctx Context) string {
	out := template
	if strings.Contains(out, "{") {
		pairs := make([]string, 0, len(placeholderKeys)*2)
		for _, k := range placeholderKeys {
			v, ok := ctx[k]
			if !ok || v == "" {
				v = Missing
			}
			pairs = append(pairs, "{"+k+"}", v)
		}
		out = strings.NewReplacer(pairs...).Replace(out)
	}
	return Truncate(out, MaxLength)
}

// Truncate 按字符截断
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// vocabulary 领域词汇（大小写不敏感、子串匹配、每个词最多计一次）
var vocabulary = []string{
	"rsi", "macd", "support", "resistance", "volume", "trend", "momentum",
	"breakout", "bollinger", "ema", "sma", "fibonacci", "volatility", "liquidity",
	"divergence", "consolidation", "reversal", "bullish", "bearish", "oversold",
	"overbought", "atr", "vwap", "order book", "funding", "open interest",
	"correlation", "moving average",
}

var tokenSplitter = regexp.MustCompile(`\s+`)

// Score 0-100 的确定性质量评分：长度 + 词汇多样性 + 领域词汇。
func Score(text string) int {
	trimmed := strings.TrimSpace(text)
	total := lengthPoints(utf8.RuneCountInString(trimmed)) +
		diversityPoints(uniqueTokens(trimmed)) +
		vocabularyPoints(vocabularyHits(trimmed))
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

func lengthPoints(n int) int {
	switch {
	case n >= 200:
		return 50
	case n >= 100:
		return 40
	case n >= 60:
		return 30
	case n >= 40:
		return 20
	default:
		return 10
	}
}

func diversityPoints(unique int) int {
	switch {
	case unique >= 25:
		return 25
	case unique >= 15:
		return 20
	case unique >= 10:
		return 10
	default:
		return 0
	}
}

func vocabularyPoints(hits int) int {
	switch {
	case hits >= 4:
		return 25
	case hits >= 2:
		return 15
	case hits >= 1:
		return 5
	default:
		return 0
	}
}

func uniqueTokens(s string) int {
	if s == "" {
		return 0
	}
	seen := make(map[string]struct{})
	for _, tok := range tokenSplitter.Split(strings.ToLower(s), -1) {
		if tok != "" {
			seen[tok] = struct{}{}
		}
	}
	return len(seen)
}

func vocabularyHits(s string) int {
	lower := strings.ToLower(s)
	hits := 0
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return hits
}

// Tier 质量分档
type Tier string

const (
	TierNone    Tier = "None"
	TierBronze  Tier = "Bronze"
	TierSilver  Tier = "Silver"
	TierGold    Tier = "Gold"
	TierDiamond Tier = "Diamond"
)

// TierOf 分档：<40 None，>=40 Bronze，>=60 Silver，>=75 Gold，>=90 Diamond
func TierOf(score int) Tier {
	switch {
	case score >= 90:
		return TierDiamond
	case score >= 75:
		return TierGold
	case score >= 60:
		return TierSilver
	case score >= 40:
		return TierBronze
	default:
		return TierNone
	}
}

// Assessment 一次完整评估（CLI / HTTP 预览使用）
type Assessment struct {
	Length     int    `json:"length"`
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
	Score      int    `json:"score"`
	Tier       Tier   `json:"tier"`
	VocabHits  int    `json:"vocabularyHits"`
	UniqueToks int    `json:"uniqueTokens"`
}

// Assess 校验 + 评分 + 分档
func Assess(text string) Assessment {
	trimmed := strings.TrimSpace(text)
	v := Validate(text)
	score := Score(text)
	a := Assessment{
		Length:     utf8.RuneCountInString(trimmed),
		Valid:      v.Valid,
		Score:      score,
		Tier:       TierOf(score),
		VocabHits:  vocabularyHits(trimmed),
		UniqueToks: uniqueTokens(trimmed),
	}
	if v.Err != nil {
		a.Error = v.Err.Error()
	}
	return a
}

// String 便于日志输出
func (a Assessment) String() string {
	return fmt.Sprintf("score=%d tier=%s length=%d valid=%v", a.Score, a.Tier, a.Length, a.Valid)
}
