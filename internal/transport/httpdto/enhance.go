package httpdto

type EnhanceRequest struct {
	Text *string `json:"text" binding:"required"`
}

type EnhanceResponse struct {
	EnhancedText string `json:"enhanced_text"`
}
