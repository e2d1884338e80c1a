package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the lifecycle state of a research request.
type Status string

const (
	StatusPending        Status = "pending"
	StatusScraping       Status = "scraping"
	StatusAnalyzing      Status = "analyzing"
	StatusFetchingVolume Status = "fetching_volume"
	StatusDone           Status = "done"
	StatusFailed         Status = "failed"
)

var statusRank = map[Status]int{
	StatusPending:        0,
	StatusScraping:       1,
	StatusAnalyzing:      2,
	StatusFetchingVolume: 3,
	StatusDone:           4,
}

// Rank orders the forward states. Failed and unknown states rank -1.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s == StatusFailed || s.Rank() >= 0 }

// CanTransition reports whether from -> to moves strictly forward, or to failed
// from any non-terminal state.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return to.Rank() > from.Rank()
}

// Predecessors lists the states from which to is reachable.
func Predecessors(to Status) []Status {
	var out []Status
	for _, s := range []Status{StatusPending, StatusScraping, StatusAnalyzing, StatusFetchingVolume} {
		if CanTransition(s, to) {
			out = append(out, s)
		}
	}
	return out
}

// Category is a requested research focus.
type Category string

const (
	CategorySaaS      Category = "saas"
	CategoryEcommerce Category = "ecommerce"
	CategoryDirectory Category = "directory"
	CategoryWebsite   Category = "website"
)

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	switch c {
	case CategorySaaS, CategoryEcommerce, CategoryDirectory, CategoryWebsite:
		return true
	}
	return false
}

// Sentiment of the discussions behind a pain point.
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// SolutionType is the business model of a candidate solution.
type SolutionType string

const (
	SolutionSaaS      SolutionType = "saas"
	SolutionEcommerce SolutionType = "ecommerce"
	SolutionService   SolutionType = "service"
	SolutionContent   SolutionType = "content"
)

// Difficulty to build a solution.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ResearchRequest is one user-submitted research run stored in MongoDB.
type ResearchRequest struct {
	ID          primitive.ObjectID `json:"id"                     bson:"_id,omitempty"`
	UserID      string             `json:"user_id"                bson:"user_id"`
	Niche       string             `json:"niche"                  bson:"niche"`
	SourceURL   string             `json:"source_url,omitempty"   bson:"source_url,omitempty"`
	Categories  []Category         `json:"categories,omitempty"   bson:"categories,omitempty"`
	Status      Status             `json:"status"                 bson:"status"`
	CreditsUsed int                `json:"credits_used"           bson:"credits_used"`
	Error       string             `json:"error,omitempty"        bson:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"             bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"             bson:"updated_at"`
}

// Quote is an illustrative excerpt attributed to a source.
type Quote struct {
	Text   string `json:"text"          bson:"text"`
	Source string `json:"source"        bson:"source"`
	URL    string `json:"url,omitempty" bson:"url,omitempty"`
}

// Solution is a candidate product idea for a pain point.
type Solution struct {
	Title        string       `json:"title"        bson:"title"`
	Description  string       `json:"description"  bson:"description"`
	Type         SolutionType `json:"type"         bson:"type"`
	Difficulty   Difficulty   `json:"difficulty"   bson:"difficulty"`
	Monetization string       `json:"monetization" bson:"monetization"`
}

// PainPoint is an AI-identified user problem. Quotes and keywords are not verified.
type PainPoint struct {
	Title            string     `json:"title"                       bson:"title"`
	Description      string     `json:"description"                 bson:"description"`
	Frequency        int        `json:"frequency"                   bson:"frequency"`
	Confidence       *int       `json:"confidence,omitempty"        bson:"confidence,omitempty"`
	EvidenceCount    *int       `json:"evidence_count,omitempty"    bson:"evidence_count,omitempty"`
	OpportunityScore *int       `json:"opportunity_score,omitempty" bson:"opportunity_score,omitempty"`
	Sentiment        Sentiment  `json:"sentiment"                   bson:"sentiment"`
	Quotes           []Quote    `json:"quotes"                      bson:"quotes"`
	Keywords         []string   `json:"keywords"                    bson:"keywords"`
	Solutions        []Solution `json:"solutions,omitempty"         bson:"solutions,omitempty"`
}

// KeywordDemand is a coarse, heuristic demand estimate for one keyword.
type KeywordDemand struct {
	Keyword     string `json:"keyword"     bson:"keyword"`
	Volume      int    `json:"volume"      bson:"volume"`
	Competition int    `json:"competition" bson:"competition"`
}

// ResearchResult is the one-to-one output of a completed request.
type ResearchResult struct {
	ID           primitive.ObjectID `json:"id"                      bson:"_id,omitempty"`
	RequestID    string             `json:"request_id"              bson:"request_id"`
	PainPoints   []PainPoint        `json:"pain_points"             bson:"pain_points"`
	SearchVolume []KeywordDemand    `json:"search_volume,omitempty" bson:"search_volume,omitempty"`
	AdLinks      map[string]string  `json:"ad_links"                bson:"ad_links"`
	CreatedAt    time.Time          `json:"created_at"              bson:"created_at"`
}

// CreateRequest is the JSON body for POST /api/research.
type CreateRequest struct {
	Niche      string     `json:"niche"`
	SourceURL  string     `json:"source_url"`
	Categories []Category `json:"categories"`
}

// StatusEvent is published on every persisted status transition.
type StatusEvent struct {
	RequestID string    `json:"request_id"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
