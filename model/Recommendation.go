package model

// Recommendation is a directed suggestion: User should connect to RecommendedUser.
type Recommendation struct {
	ID              string `json:"id"`
	User            string `json:"userId"`
	RecommendedUser string `json:"recommendedUserId"`
}
