package model

// SubscriptionStatus 订阅状态（与面板侧状态保持同一取值）
type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired SubscriptionStatus = "EXPIRED"
	SubscriptionStatusDeleted SubscriptionStatus = "DELETED"
)

// AccessMode 全局访问模式
type AccessMode string

const (
	AccessModeAll      AccessMode = "all"      // 全部放行
	AccessModeBlocked  AccessMode = "blocked"  // 全部拒绝
	AccessModePurchase AccessMode = "purchase" // 禁止新购买，存量订阅正常
	AccessModeInvited  AccessMode = "invited"  // 仅受邀用户
)

// AllAccessModes 所有合法访问模式（顺序固定，供后台展示）
var AllAccessModes = []AccessMode{
	AccessModeAll,
	AccessModeBlocked,
	AccessModePurchase,
	AccessModeInvited,
}

// Valid 是否为已知模式
func (m AccessMode) Valid() bool {
	switch m {
	case AccessModeAll, AccessModeBlocked, AccessModePurchase, AccessModeInvited:
		return true
	}
	return false
}

// TrafficResetStrategy 流量计数重置策略
type TrafficResetStrategy string

const (
	TrafficResetNoReset TrafficResetStrategy = "NO_RESET"
	TrafficResetDay     TrafficResetStrategy = "DAY"
	TrafficResetWeek    TrafficResetStrategy = "WEEK"
	TrafficResetMonth   TrafficResetStrategy = "MONTH"
)

// PlanType 套餐类型（按限制维度派生，不落库）
type PlanType string

const (
	PlanTypeTraffic   PlanType = "traffic"
	PlanTypeDevices   PlanType = "devices"
	PlanTypeBoth      PlanType = "both"
	PlanTypeUnlimited PlanType = "unlimited"
)

// UserRole 用户角色
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)
