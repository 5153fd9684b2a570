package usecase

import "math"

// CosineSimilarity は2つの埋め込みベクトルのコサイン類似度を計算します。
// 次元が一致しない場合やゼロベクトルの場合は0を返します。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// FuzzyRatio は2つの文字列の編集距離ベースの類似度を0〜100で返します。
// 100は完全一致を意味します。両方空文字列の場合は100を返します。
// 編集距離と分母はどちらもルーン数で数えます。バイト長で割ると
// マルチバイト文字列の比率が実際より高く出てしまうためです。
func FuzzyRatio(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	return int((1.0 - float64(dist)/float64(maxLen)) * 100)
}

// levenshtein は2つの文字列間の編集距離を計算します。
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
