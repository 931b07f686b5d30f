package models

// DispatchRequest is the body of POST /events/:type and the value of a Kafka event message.
// Type is read from the path for HTTP and from the message for Kafka.
type DispatchRequest struct {
	Type    string                 `json:"type,omitempty"`
	Client  ClientContext          `json:"client"`
	Payload map[string]interface{} `json:"payload"`
}

// ClientContext describes the browser the event came from.
// ID keys the persisted client store; without it nothing outlives the event.
type ClientContext struct {
	ID           string `json:"id,omitempty"`
	IP           string `json:"ip,omitempty"`
	Language     string `json:"language,omitempty"`
	URL          string `json:"url,omitempty"`
	Title        string `json:"title,omitempty"`
	Referer      string `json:"referer,omitempty"`
	ScreenWidth  int    `json:"screenWidth,omitempty"`
	ScreenHeight int    `json:"screenHeight,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
}

// DispatchResponse is returned by POST /events/:type.
type DispatchResponse struct {
	Type      string `json:"type"`
	Listeners int    `json:"listeners"`
}
