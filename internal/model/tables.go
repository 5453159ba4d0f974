package model

const (
	SessionsTable = "Sessions"
)

// SessionItem is the DynamoDB row behind one browser session.
// ExpiresAt is a unix timestamp so the table TTL can reap it.
type SessionItem struct {
	SessionID    string `dynamodbav:"sessionId"`
	AccessToken  string `dynamodbav:"accessToken,omitempty"`
	RefreshToken string `dynamodbav:"refreshToken,omitempty"`
	UserID       string `dynamodbav:"userId,omitempty"`
	UpdatedAt    string `dynamodbav:"updatedAt"`
	ExpiresAt    int64  `dynamodbav:"expiresAt"`
}
