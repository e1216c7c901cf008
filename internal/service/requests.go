package service

import (
	"github.com/akio-byte/navaltutka/internal/snapshot"
	"github.com/akio-byte/navaltutka/internal/upstream"
)

type ChatRequest struct {
	Message      string              `json:"message" validate:"required,max=2000"`
	Context      string              `json:"context" validate:"max=12000"`
	ContextRef   string              `json:"contextRef" validate:"max=200"`
	HistoryDelta []upstream.ChatTurn `json:"historyDelta" validate:"max=8,dive"`
	Stream       bool                `json:"stream"`
}

type BriefRequest struct {
	Item *snapshot.Item `json:"item" validate:"required"`
}

type HorizonRequest struct {
	Snapshot *snapshot.Data `json:"snapshot" validate:"required"`
}

type ReportRequest struct {
	Snapshot         *snapshot.Data `json:"snapshot" validate:"required"`
	ExternalEvidence []EvidenceItem `json:"externalEvidence" validate:"max=20,dive"`
}

// EvidenceItem is a search result passed back in for a report. Title, url
// and snippet must be present but may be empty.
type EvidenceItem struct {
	Title          *string `json:"title" validate:"required"`
	URL            *string `json:"url" validate:"required"`
	Snippet        *string `json:"snippet" validate:"required"`
	PublishedAtUTC *string `json:"publishedAtUtc"`
}


// RankItem is the compact item descriptor a ranking request carries.
type RankItem struct {
	ID   string   `json:"id"`
	T    string   `json:"t"`
	S    string   `json:"s"`
	Tags []string `json:"tags,omitempty"`
}

type RankRequest struct {
	Query     string     `json:"query" validate:"required,min=1,max=120"`
	ItemsMini []RankItem `json:"itemsMini" validate:"required,max=120,dive"`
}

type SearchRequest struct {
	Query string `json:"query" validate:"required,min=1,max=200"`
}
