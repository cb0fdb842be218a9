package domain

// Operator 已认证的操作人员身份，由上层认证提供
type Operator struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Department string `json:"department"`
	Role       string `json:"role"`
}
