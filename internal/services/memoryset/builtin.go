package memoryset

// DefaultSetID is the built-in set used whenever a requested set cannot
// be resolved.
const DefaultSetID = "default"

var builtinOrder = []string{"default", "programming", "animals", "english_hard"}

var builtinTitles = map[string]string{
	"default":      "基本セット (フルーツ)",
	"programming":  "プログラミング用語",
	"animals":      "動物の名前",
	"english_hard": "超難問英単語",
}

var builtinWords = map[string][]WordItem{
	"default": {
		{Text: "apple", Kana: "アップル"},
		{Text: "banana", Kana: "バナナ"},
		{Text: "cherry", Kana: "チェリー"},
		{Text: "grape", Kana: "ブドウ"},
		{Text: "orange", Kana: "オレンジ"},
		{Text: "peach", Kana: "モモ"},
	},
	"programming": {
		{Text: "Python", Kana: "パイソン"},
		{Text: "React", Kana: "リアクト"},
		{Text: "Docker", Kana: "ドッカー"},
		{Text: "Algorithm", Kana: "アルゴリズム"},
		{Text: "Database", Kana: "データベース"},
		{Text: "Frontend", Kana: "フロントエンド"},
	},
	"animals": {
		{Text: "Lion", Kana: "ライオン"},
		{Text: "Elephant", Kana: "ゾウ"},
		{Text: "Giraffe", Kana: "キリン"},
		{Text: "Penguin", Kana: "ペンギン"},
		{Text: "Dolphin", Kana: "イルカ"},
	},
	"english_hard": {
		{Text: "procrastinate", Kana: "先延ばしにする"},
		{Text: "ambiguous", Kana: "曖昧な"},
		{Text: "resilient", Kana: "回復力のある"},
	},
}

func builtinSet(id string) (*MemorySetDTO, bool) {
	words, ok := builtinWords[id]
	if !ok {
		return nil, false
	}
	return &MemorySetDTO{
		ID:                id,
		Title:             builtinTitles[id],
		Words:             words,
		MemorizeTime:      3,
		AnswerTime:        10,
		QuestionsPerRound: 1,
		WinScore:          10,
		ConditionType:     "score",
		OrderType:         "random",
		IsOfficial:        true,
	}, true
}
