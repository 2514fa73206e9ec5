package config

import "github.com/to404hanga/online_judge_pipeline/model"

// LanguageConfig defines how a submission in one language is handed to the judger.
type LanguageConfig struct {
	Tag            string // 传给评测机的语言标识
	SourceFileName string
}

var LanguageConfigs = map[model.SubmissionLanguage]LanguageConfig{
	model.SubmissionLanguageCPP: {
		Tag:            "cpp",
		SourceFileName: "main.cpp",
	},
	model.SubmissionLanguagePython: {
		Tag:            "python",
		SourceFileName: "main.py",
	},
}
