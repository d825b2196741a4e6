package interview

import "strings"

var complexityAliases = map[string]string{
	"o(1)":              "O(1)",
	"o(n)":              "O(n)",
	"o(n^2)":            "O(n^2)",
	"o(n2)":             "O(n^2)",
	"o(n*n)":            "O(n^2)",
	"o(n^3)":            "O(n^3)",
	"o(n3)":             "O(n^3)",
	"o(n*n*n)":          "O(n^3)",
	"o(n^2*m)":          "O(n^2 * m)",
	"o(log n)":          "O(log n)",
	"o(logn)":           "O(log n)",
	"o(n log n)":        "O(n log n)",
	"o(nlogn)":          "O(n log n)",
	"o(n!)":             "O(n!)",
	"o(2^n)":            "O(2^n)",
	"o(n+m)":            "O(n+m)",
	"o(m+n)":            "O(n+m)",
	"o(v+e)":            "O(V+E)",
	"o(vertices+edges)": "O(V+E)",
	"o(v + e)":          "O(V+E)",
	"o(e+v)":            "O(V+E)",
	"o(e log v)":        "O(E log V)",
	"o(elogv)":          "O(E log V)",
	"o(v^2)":            "O(V^2)",
	"o(e log e)":        "O(E log E)",
}

// NormalizeComplexity maps common spellings of a Big-O answer onto one
// canonical form. Unrecognised answers are returned trimmed.
func NormalizeComplexity(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if canonical, ok := complexityAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
