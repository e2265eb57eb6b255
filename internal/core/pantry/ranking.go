package pantry

import (
	"math"
	"sort"
	"strings"

	"kitchen-api/internal/pkg/common"
)

// SortMode 排序模式
type SortMode string

const (
	SortBest     SortMode = "best"
	SortRecent   SortMode = "recent"
	SortTitleAsc SortMode = "title-asc"
	SortTimeAsc  SortMode = "time-asc"
)

// ParseSortMode 解析排序模式，未知值回到預設
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortTitleAsc:
		return SortTitleAsc
	case SortTimeAsc:
		return SortTimeAsc
	case SortRecent:
		return SortRecent
	default:
		return SortBest
	}
}

// 未宣告時間的食譜排在最後
const noTimeSentinel = math.MaxInt32

// Options 篩選與排序參數
type Options struct {
	Query       string
	Tag         string
	Cookability Bucket // 空值表示不篩選
	Sort        SortMode
}

// Ranked 附帶評估結果的食譜
type Ranked struct {
	Recipe      common.Recipe `json:"recipe"`
	Cookability Result        `json:"cookability"`
	Bucket      Bucket        `json:"bucket"`
}

// Summary 整個食譜庫的分類統計
type Summary struct {
	Total   int `json:"total"`
	CookNow int `json:"cook_now"`
	Almost  int `json:"almost"`
	Missing int `json:"missing"`
}

// RankResult 排序結果
type RankResult struct {
	Recipes []Ranked `json:"recipes"`
	Summary Summary  `json:"summary"`
}

// Rank 依查詢、標籤與分類篩選食譜並排序
//
// Summary 針對未篩選的完整集合計算。
func Rank(recipes []common.Recipe, pantry []common.PantryItem, opts Options) RankResult {
	available := NameSet(pantry)

	all := make([]Ranked, len(recipes))
	var summary Summary
	for i, r := range recipes {
		res := evaluate(r.Ingredients, available)
		b := res.Bucket()
		all[i] = Ranked{Recipe: r, Cookability: res, Bucket: b}

		summary.Total++
		switch b {
		case BucketCookNow:
			summary.CookNow++
		case BucketAlmost:
			summary.Almost++
		default:
			summary.Missing++
		}
	}

	query := strings.ToLower(strings.TrimSpace(opts.Query))
	tag := strings.TrimSpace(opts.Tag)

	filtered := make([]Ranked, 0, len(all))
	for _, r := range all {
		if query != "" && !matchesQuery(r.Recipe, query) {
			continue
		}
		if tag != "" && !hasTag(r.Recipe, tag) {
			continue
		}
		if opts.Cookability != "" && r.Bucket != opts.Cookability {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, lessFunc(filtered, opts.Sort))

	return RankResult{Recipes: filtered, Summary: summary}
}

func matchesQuery(r common.Recipe, query string) bool {
	haystack := strings.ToLower(r.Title + " " + r.Description + " " + strings.Join(r.Tags, " "))
	return strings.Contains(haystack, query)
}

func hasTag(r common.Recipe, tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func totalTime(r common.Recipe) int {
	if m, ok := r.TotalMinutes(); ok {
		return m
	}
	return noTimeSentinel
}

// compareTitle 標題比較，最後以 ID 收斂為全序
func compareTitle(a, b common.Recipe) int {
	if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
		return c
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func lessFunc(items []Ranked, mode SortMode) func(i, j int) bool {
	switch mode {
	case SortTitleAsc:
		return func(i, j int) bool {
			return compareTitle(items[i].Recipe, items[j].Recipe) < 0
		}
	case SortTimeAsc:
		return func(i, j int) bool {
			ti, tj := totalTime(items[i].Recipe), totalTime(items[j].Recipe)
			if ti != tj {
				return ti < tj
			}
			return compareTitle(items[i].Recipe, items[j].Recipe) < 0
		}
	default:
		return func(i, j int) bool {
			a, b := items[i], items[j]
			if ra, rb := a.Bucket.Rank(), b.Bucket.Rank(); ra != rb {
				return ra < rb
			}
			if a.Cookability.MissingCount != b.Cookability.MissingCount {
				return a.Cookability.MissingCount < b.Cookability.MissingCount
			}
			if ta, tb := totalTime(a.Recipe), totalTime(b.Recipe); ta != tb {
				return ta < tb
			}
			return compareTitle(a.Recipe, b.Recipe) < 0
		}
	}
}
