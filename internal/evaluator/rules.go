package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/domain"
)

// 条件规则阈值（整天数，严格大于）
const (
	RentalIdleDays = 7
	InactivityDays = 30
)

// Candidate 待持久化的告警
type Candidate struct {
	Type     domain.AlertType
	Severity domain.Severity
	Message  string
}

// assetRule 基于资产当前状态的条件规则
type assetRule interface {
	evaluate(a *domain.Asset, now time.Time) *Candidate
}

// idleDays 距最近使用的整天数；未使用过时 ok=false
func idleDays(a *domain.Asset, now time.Time) (int, bool) {
	if a.LastUsage == nil {
		return 0, false
	}
	return int(math.Floor(now.Sub(*a.LastUsage).Hours() / 24)), true
}

// rentalExpiryRule 租赁设备闲置
type rentalExpiryRule struct{}

func (rentalExpiryRule) evaluate(a *domain.Asset, now time.Time) *Candidate {
	if !a.IsRental() {
		return nil
	}
	days, ok := idleDays(a, now)
	if !ok || days <= RentalIdleDays {
		return nil
	}
	return &Candidate{
		Type:     domain.AlertRentalExpiry,
		Severity: domain.SeverityHigh,
		Message:  fmt.Sprintf("Rental asset %s has not been used for %d days", a.Name, days),
	}
}

// inactivityRule 任意设备长期未使用
type inactivityRule struct{}

func (inactivityRule) evaluate(a *domain.Asset, now time.Time) *Candidate {
	days, ok := idleDays(a, now)
	if !ok || days <= InactivityDays {
		return nil
	}
	return &Candidate{
		Type:     domain.AlertInactivity,
		Severity: domain.SeverityMedium,
		Message:  fmt.Sprintf("Asset %s has been inactive for %d days", a.Name, days),
	}
}

// overuseRule 单次使用超过分类最大连续使用时长
type overuseRule struct {
	atlas *atlas.Atlas
}

func (r overuseRule) evaluate(a *domain.Asset, s *domain.UsageSession) *Candidate {
	if s == nil || s.EndTime == nil {
		return nil
	}
	limit := r.atlas.Policy(a.Category).MaxContinuousUseHours
	hours := s.DurationHours()
	if hours <= limit {
		return nil
	}
	return &Candidate{
		Type:     domain.AlertOveruse,
		Severity: domain.SeverityMedium,
		Message: fmt.Sprintf("Asset %s was used for %.1f hours (max: %s)",
			a.Name, hours, strconv.FormatFloat(limit, 'f', -1, 64)),
	}
}
