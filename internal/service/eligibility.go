package service

import (
	"fmt"
	"time"
)

// SimulationSource 所有RPC节点都失败时 SourceEndpoint 的取值
const SimulationSource = "simulation"

const (
	ReasonBlocked  = "user is blocked from claiming"
	ReasonPaused   = "airdrop is paused by emergency stop"
	ReasonCooldown = "claim cooldown active"
)

// Eligibility 领取资格
// 冷却期计算得到的结果满足 CanClaim == (TimeRemaining == 0)；
// 被封禁或紧急暂停时 CanClaim=false 且 TimeRemaining=0，并由 Blocked/Paused 标明
type Eligibility struct {
	CanClaim       bool   `json:"canClaim"`
	TimeRemaining  int64  `json:"timeRemaining"`
	DailyAmount    string `json:"airdropAmount"`
	SourceEndpoint string `json:"rpcUsed"`
	Degraded       bool   `json:"degraded"`
	Blocked        bool   `json:"blocked,omitempty"`
	Paused         bool   `json:"paused,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Authoritative 结果是否来自链上
func (e Eligibility) Authoritative() bool {
	return !e.Degraded
}

// SimulateEligibility 基于本地记录的最近领取时间推算资格
// lastClaim 为 nil 表示首次领取
func SimulateEligibility(lastClaim *time.Time, now time.Time, interval time.Duration) Eligibility {
	e := Eligibility{SourceEndpoint: SimulationSource, Degraded: true}
	if lastClaim == nil {
		e.CanClaim = true
		return e
	}

	next := lastClaim.Unix() + int64(interval/time.Second)
	remaining := next - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	e.TimeRemaining = remaining
	e.CanClaim = remaining == 0
	if !e.CanClaim {
		e.Reason = ReasonCooldown
	}
	return e
}

// CooldownError 冷却期内再次领取
type CooldownError struct {
	Remaining int64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("next claim available in %ds", e.Remaining)
}
