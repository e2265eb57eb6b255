package pantry

import (
	"regexp"

	"kitchen-api/internal/pkg/common"
)

// Bucket 可烹飪程度分類
type Bucket string

const (
	BucketCookNow Bucket = "cook-now"
	BucketAlmost  Bucket = "almost"
	BucketMissing Bucket = "missing"
)

// almostMaxMissing 缺少 1~3 項仍視為「差一點」
const almostMaxMissing = 3

// BucketFor 依缺少數量決定分類
func BucketFor(missingCount int) Bucket {
	switch {
	case missingCount <= 0:
		return BucketCookNow
	case missingCount <= almostMaxMissing:
		return BucketAlmost
	default:
		return BucketMissing
	}
}

// Rank 分類的排序權重，越小越前面
func (b Bucket) Rank() int {
	switch b {
	case BucketCookNow:
		return 0
	case BucketAlmost:
		return 1
	default:
		return 2
	}
}

// Valid 檢查分類字串是否合法
func (b Bucket) Valid() bool {
	return b == BucketCookNow || b == BucketAlmost || b == BucketMissing
}

// Result 可烹飪性評估結果
type Result struct {
	MissingCount   int      `json:"missing_count"`
	MissingLabels  []string `json:"missing_labels"`
	AvailableCount int      `json:"available_count"`
}

// Bucket 結果所屬分類
func (r Result) Bucket() Bucket {
	return BucketFor(r.MissingCount)
}

var optionalNotePattern = regexp.MustCompile(`(?i)optional|to taste`)

// IsOptional 備註含 optional 或 to taste 即為選用食材
func IsOptional(ing common.RecipeIngredient) bool {
	return ing.Note != "" && optionalNotePattern.MatchString(ing.Note)
}

// NameSet 將快照名稱正規化成集合；同名多列視為同一項
func NameSet(pantry []common.PantryItem) map[string]struct{} {
	set := make(map[string]struct{}, len(pantry))
	for _, item := range pantry {
		key := Normalize(item.Name)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// Evaluate 評估食材清單在快照下的可烹飪性
func Evaluate(ingredients []common.RecipeIngredient, pantry []common.PantryItem) Result {
	return evaluate(ingredients, NameSet(pantry))
}

func evaluate(ingredients []common.RecipeIngredient, available map[string]struct{}) Result {
	result := Result{MissingLabels: []string{}}
	seen := make(map[string]struct{})

	for _, ing := range ingredients {
		label := ing.MatchLabel()
		key := Normalize(label)
		if key == "" {
			continue
		}
		if IsOptional(ing) {
			result.AvailableCount++
			continue
		}
		if _, ok := available[key]; ok {
			result.AvailableCount++
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.MissingLabels = append(result.MissingLabels, label)
	}

	result.MissingCount = len(result.MissingLabels)
	return result
}
