package transport

// Request DTOs
type RegisterContactRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Phone string `json:"phone" validate:"required,min=5,max=20"`
}

type InboundMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// WebhookMessageRequest is the payload the WhatsApp gateway posts for an
// incoming chat message. Unknown senders are registered on the fly.
type WebhookMessageRequest struct {
	Phone string `json:"phone" validate:"required,min=5,max=20"`
	Name  string `json:"name,omitempty" validate:"max=100"`
	Text  string `json:"text" validate:"required,min=1,max=4000"`
}

type OverrideStageRequest struct {
	StageID int `json:"stageId" validate:"required,min=1"`
}

type SubmitDocumentsRequest struct {
	Validated *bool `json:"validated" validate:"required"`
}

type SetFlagRequest struct {
	Flag  string `json:"flag" validate:"required,oneof=possible_payment pending_issue"`
	Value *bool  `json:"value" validate:"required"`
}

type SetAIEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Response DTOs
type SuggestionResponse struct {
	Message string `json:"message"`
}

type StageIDResponse struct {
	ID int `json:"id"`
}

type CountsResponse struct {
	Counts map[string]int `json:"counts"`
}
