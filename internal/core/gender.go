package core

import "strings"

type Gender int

const (
	GenderUnspecified Gender = iota
	GenderFemale
	GenderMale
)

var (
	femaleKeywords = []string{"女", "女生", "女孩", "妹妹", "母", "她"}
	maleKeywords   = []string{"男", "男生", "男孩", "哥哥", "父", "他"}
)

// InferGender guesses a gender from free text by counting fixed keyword
// hits per set. Strict majority wins; a tie or no hits is unspecified.
// This is a heuristic, not NLP.
func InferGender(text string) Gender {
	if text == "" {
		return GenderUnspecified
	}
	var female, male int
	for _, kw := range femaleKeywords {
		female += strings.Count(text, kw)
	}
	for _, kw := range maleKeywords {
		male += strings.Count(text, kw)
	}
	switch {
	case female > male:
		return GenderFemale
	case male > female:
		return GenderMale
	default:
		return GenderUnspecified
	}
}

func (g Gender) String() string {
	switch g {
	case GenderFemale:
		return "女"
	case GenderMale:
		return "男"
	default:
		return ""
	}
}
