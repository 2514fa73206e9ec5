package model

type SubmissionLanguage string

const (
	SubmissionLanguageCPP    SubmissionLanguage = "cpp"
	SubmissionLanguagePython SubmissionLanguage = "python"
)

func (l SubmissionLanguage) String() string {
	return string(l)
}

func (l SubmissionLanguage) Valid() bool {
	return l == SubmissionLanguageCPP || l == SubmissionLanguagePython
}
