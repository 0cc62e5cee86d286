// Package event defines the closed set of stream events shared by the SSE
// and WebSocket transports, and the sinks that deliver them in order.
package event

// Type discriminates the event union. Both transports serialize the same
// tagged JSON object; adding a kind here is the single point of extension.
type Type string

const (
	TypeStart             Type = "start"
	TypeChunk             Type = "chunk"
	TypeAudio             Type = "audio"
	TypeSilence           Type = "silence"
	TypeTextChunk         Type = "text_chunk"
	TypeError             Type = "error"
	TypeConversationStart Type = "conversation_start"
	TypeConversationEnd   Type = "conversation_end"
	TypeEnd               Type = "end"
)

// Event is one element of a stream's ordered event sequence. Only the fields
// belonging to the tagged kind are set; audio payloads travel base64-encoded
// inline, there is no separate binary channel.
type Event struct {
	Type           Type    `json:"type"`
	Index          int     `json:"index,omitempty"`
	TotalChunks    int     `json:"totalChunks,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	TotalDuration  float64 `json:"totalDuration,omitempty"`
	SampleRate     int     `json:"sampleRate,omitempty"`
	Audio          string  `json:"audio,omitempty"`
	Text           string  `json:"text,omitempty"`
	FullText       string  `json:"fullText,omitempty"`
	Message        string  `json:"message,omitempty"`
	ConversationID string  `json:"conversationId,omitempty"`
	FullResponse   string  `json:"fullResponse,omitempty"`
}

func Start(totalChunks int) Event {
	return Event{Type: TypeStart, TotalChunks: totalChunks}
}

func Chunk(index int, duration float64, sampleRate int) Event {
	return Event{Type: TypeChunk, Index: index, Duration: duration, SampleRate: sampleRate}
}

func Audio(index int, text, audioBase64 string) Event {
	return Event{Type: TypeAudio, Index: index, Text: text, Audio: audioBase64}
}

func Silence(duration float64, audioBase64 string) Event {
	return Event{Type: TypeSilence, Duration: duration, Audio: audioBase64}
}

func TextChunk(text, fullText string) Event {
	return Event{Type: TypeTextChunk, Text: text, FullText: fullText}
}

func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

func PhraseError(index int, message string) Event {
	return Event{Type: TypeError, Index: index, Message: message}
}

func ConversationStart(conversationID string) Event {
	return Event{Type: TypeConversationStart, ConversationID: conversationID}
}

func ConversationEnd(fullResponse string) Event {
	return Event{Type: TypeConversationEnd, FullResponse: fullResponse}
}

func End(totalDuration float64, totalChunks int) Event {
	return Event{Type: TypeEnd, TotalDuration: totalDuration, TotalChunks: totalChunks}
}
