package handlers

// ChatRequest Request from client
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatResponse is one NDJSON line of a relayed reply.
type ChatResponse struct {
	ID            string `json:"id,omitempty"`
	ProcessedText string `json:"processedText,omitempty"`
	Done          bool   `json:"done,omitempty"`
	Error         string `json:"error,omitempty"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
	Options     []string `json:"options"`
}

type StatusResponse struct {
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
	Streaming  bool   `json:"streaming"`
}
