package nebulous

type diagnosticsPlayer struct {
	Ver   int    `json:"ver"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cells int    `json:"cells"`
	Score int64  `json:"score"`
}
