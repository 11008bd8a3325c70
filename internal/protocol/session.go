package protocol

// Session identifies an anonymous webchat visitor.
type Session struct {
	SessionID      string `json:"sessionId"`
	VisitorName    string `json:"visitorName"`
	ConversationID int64  `json:"conversationId"`
}

// Branding is the public display configuration of a tenant.
type Branding struct {
	CompanyName    string `json:"companyName,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	WelcomeText    string `json:"welcomeText,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
}

// SessionRequest starts a new session (SessionID empty) or resumes one.
type SessionRequest struct {
	SessionID   string `json:"sessionId,omitempty"`
	VisitorName string `json:"visitorName"`
}

// SessionResponse is returned by POST /session.
type SessionResponse struct {
	SessionID      string        `json:"sessionId"`
	ConversationID int64         `json:"conversationId"`
	Branding       Branding      `json:"branding"`
	AgentOnline    bool          `json:"agentOnline"`
	Messages       []ChatMessage `json:"messages"`
}
