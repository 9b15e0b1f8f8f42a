package selector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

// 内置策略名
const (
	Balanced = "balanced"
	Underdog = "underdog"
	Favorite = "favorite"
	Value    = "value"
)

// ErrEmptyInput 没有可选的 grid
var ErrEmptyInput = &apierrors.ValidationError{Field: "grids", Message: "no grids to choose from (need at least 1)"}

// Func 自定义选择函数：调用方负责返回值的正确性，选择器不做校验。
type Func func(grids []domain.Grid, referencePrice float64) domain.Grid

// Strategy 策略的标签联合：Named(name) 或 Custom(fn)，二者只能取其一。
type Strategy struct {
	name   string
	custom Func
}

// Named 按名称引用内置策略（大小写敏感，不做任何规范化）
func Named(name string) Strategy {
	return Strategy{name: name}
}

// Custom 使用调用方提供的选择函数
func Custom(fn Func) Strategy {
	return Strategy{custom: fn}
}

// IsCustom 是否为自定义函数
func (s Strategy) IsCustom() bool { return s.custom != nil }

// Name 策略名；自定义函数返回 "custom"
func (s Strategy) Name() string {
	if s.custom != nil {
		return "custom"
	}
	return s.name
}

// UnknownStrategyError 未知策略名
type UnknownStrategyError struct {
	Name  string
	Valid []string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q (valid: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// As 使 errors.As(err, **apierrors.ValidationError) 也能匹配未知策略。
func (e *UnknownStrategyError) As(target any) bool {
	if ve, ok := target.(**apierrors.ValidationError); ok {
		*ve = &apierrors.ValidationError{Field: "strategy", Message: e.Error()}
		return true
	}
	return false
}

// builtins 内置策略：每个都是以首元素为种子的归约，严格比较，平局保留先出现者。
var builtins = map[string]Func{
	Balanced: func(grids []domain.Grid, _ float64) domain.Grid {
		return minBy(grids, func(g domain.Grid) float64 {
			return math.Abs(num(g.ImpliedProbability) - 0.5)
		})
	},
	Underdog: func(grids []domain.Grid, _ float64) domain.Grid {
		return maxBy(grids, func(g domain.Grid) float64 { return num(g.Odds) })
	},
	Favorite: func(grids []domain.Grid, ref float64) domain.Grid {
		return minBy(grids, func(g domain.Grid) float64 {
			mid := (num(g.LowerBound) + num(g.UpperBound)) / 2
			return math.Abs(mid - ref)
		})
	},
	Value: func(grids []domain.Grid, _ float64) domain.Grid {
		return maxBy(grids, func(g domain.Grid) float64 {
			return num(g.Odds) * num(g.ImpliedProbability)
		})
	},
}

// Names 内置策略名（排序后）
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve 校验策略是否可用（未知名称返回 UnknownStrategyError），不做选择。
func Resolve(s Strategy) (Func, error) {
	if s.custom != nil {
		return s.custom, nil
	}
	fn, ok := builtins[s.name]
	if !ok {
		return nil, &UnknownStrategyError{Name: s.name, Valid: Names()}
	}
	return fn, nil
}

// Select 从 grids 中选出一个。空输入返回 ErrEmptyInput。
func Select(grids []domain.Grid, referencePrice float64, s Strategy) (domain.Grid, error) {
	if len(grids) == 0 {
		return domain.Grid{}, ErrEmptyInput
	}
	fn, err := Resolve(s)
	if err != nil {
		return domain.Grid{}, err
	}
	return fn(grids, referencePrice), nil
}

// IsEmptyInput 判断是否为空输入错误
func IsEmptyInput(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}

func minBy(grids []domain.Grid, key func(domain.Grid) float64) domain.Grid {
	best, bestKey := grids[0], key(grids[0])
	for _, g := range grids[1:] {
		// NaN 的比较恒为 false：无法解析的值不会替换当前最优
		if k := key(g); k < bestKey {
			best, bestKey = g, k
		}
	}
	return best
}

func maxBy(grids []domain.Grid, key func(domain.Grid) float64) domain.Grid {
	best, bestKey := grids[0], key(grids[0])
	for _, g := range grids[1:] {
		if k := key(g); k > bestKey {
			best, bestKey = g, k
		}
	}
	return best
}

// num 仅用于比较的浮点解析；失败返回 NaN
func num(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
