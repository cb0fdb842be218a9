package domain

import "time"

// Ownership 资产归属
type Ownership string

const (
	OwnershipHospital Ownership = "hospital"
	OwnershipRental   Ownership = "rental"
)

// Valid 是否为已知归属
func (o Ownership) Valid() bool {
	return o == OwnershipHospital || o == OwnershipRental
}

// AssetStatus 资产状态
type AssetStatus string

const (
	StatusUnassociated AssetStatus = "unassociated"
	StatusAvailable    AssetStatus = "available"
	StatusInUse        AssetStatus = "in-use"
	StatusMaintenance  AssetStatus = "maintenance"
	StatusRetired      AssetStatus = "retired"
)

// transitions 合法状态迁移表，retired 为终态
var transitions = map[AssetStatus][]AssetStatus{
	StatusUnassociated: {StatusAvailable, StatusRetired},
	StatusAvailable:    {StatusInUse, StatusMaintenance, StatusRetired},
	StatusInUse:        {StatusAvailable, StatusRetired},
	StatusMaintenance:  {StatusAvailable, StatusRetired},
	StatusRetired:      nil,
}

// Valid 是否为已知状态
func (s AssetStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to AssetStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus 新登记资产的初始状态：租赁设备需先关联
func InitialStatus(o Ownership) AssetStatus {
	if o == OwnershipRental {
		return StatusUnassociated
	}
	return StatusAvailable
}

// Asset 可移动医疗设备（对应 assets 表）
type Asset struct {
	ID                     string      `db:"id" json:"id"`
	AssetCode              string      `db:"asset_code" json:"asset_code"` // 唯一外部标识，二维码内容
	Name                   string      `db:"name" json:"name"`
	Category               string      `db:"category" json:"category"`
	Ownership              Ownership   `db:"ownership" json:"ownership"`
	Status                 AssetStatus `db:"status" json:"status"`
	Location               string      `db:"location" json:"location"`
	Manufacturer           string      `db:"manufacturer" json:"manufacturer,omitempty"`
	SerialNumber           string      `db:"serial_number" json:"serial_number,omitempty"`
	Vendor                 *string     `db:"vendor" json:"vendor,omitempty"`           // 仅租赁
	RentalRate             *float64    `db:"rental_rate" json:"rental_rate,omitempty"` // 仅租赁
	PurchaseDate           *time.Time  `db:"purchase_date" json:"purchase_date,omitempty"`
	ExpectedLifespanMonths int         `db:"expected_lifespan_months" json:"expected_lifespan_months"`
	LastUsage              *time.Time  `db:"last_usage" json:"last_usage,omitempty"`
	CreatedAt              time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at" json:"updated_at"`
}

// IsRental 是否为租赁设备
func (a *Asset) IsRental() bool {
	return a.Ownership == OwnershipRental
}

// DefaultLifespanMonths 默认预期寿命（月）
const DefaultLifespanMonths = 60

// AssetFilter 资产列表过滤条件
type AssetFilter struct {
	Statuses   []AssetStatus
	Categories []string
	Ownership  Ownership
	Location   string
	Search     string // 按名称/编码模糊匹配
}
