// Package atlas 设备分类知识库：每个分类的标准操作规程与使用阈值。
// Atlas 构建后只读，可在多个 goroutine 间共享。
package atlas

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category 设备分类键
type Category string

const (
	Wheelchair         Category = "wheelchair"
	StretcherGurney    Category = "stretcher_gurney"
	PortableXRay       Category = "portable_xray"
	PortableUltrasound Category = "portable_ultrasound"
	MobileECG          Category = "mobile_ecg"
	IVPoleWheeled      Category = "iv_pole_wheeled"
	MobileVitalSigns   Category = "mobile_vital_signs"
	DefibrillatorCart  Category = "defibrillator_cart"
	InfusionPumpStand  Category = "infusion_pump_stand"
	CrashCart          Category = "crash_cart"
	PortableVentilator Category = "portable_ventilator"
	AnesthesiaCart     Category = "anesthesia_cart"
)

// 未知分类使用的默认阈值
const (
	DefaultMaxContinuousUseHours   = 8.0
	DefaultMaintenanceIntervalDays = 30
)

// NormalizeCategory 规范化自由文本分类：小写，空格转下划线
func NormalizeCategory(raw string) Category {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), "_")
	return Category(s)
}

// Entry 单个分类的知识条目
type Entry struct {
	Category                Category `yaml:"category" json:"category"`
	SOP                     string   `yaml:"sop" json:"sop"`
	TrainingRequired        bool     `yaml:"training_required" json:"training_required"`
	CriticalDevice          bool     `yaml:"critical_device" json:"critical_device"`
	MaxContinuousUseHours   float64  `yaml:"max_continuous_use_hours" json:"max_continuous_use_hours"`
	MaintenanceIntervalDays int      `yaml:"maintenance_interval_days" json:"maintenance_interval_days"`
}

// Policy 分类策略；Known=false 表示分类不在知识库中，阈值为默认值
type Policy struct {
	Entry
	Known bool `json:"known"`
}

// Atlas 分类知识库
type Atlas struct {
	entries map[Category]Entry
}

// New 由条目构建知识库，分类重复或阈值非法时报错
func New(entries []Entry) (*Atlas, error) {
	m := make(map[Category]Entry, len(entries))
	for _, e := range entries {
		e.Category = NormalizeCategory(string(e.Category))
		if e.Category == "" {
			return nil, fmt.Errorf("atlas entry without category")
		}
		if _, dup := m[e.Category]; dup {
			return nil, fmt.Errorf("duplicate atlas category %q", e.Category)
		}
		if e.MaxContinuousUseHours <= 0 {
			return nil, fmt.Errorf("atlas category %q: max_continuous_use_hours must be positive", e.Category)
		}
		if e.MaintenanceIntervalDays <= 0 {
			return nil, fmt.Errorf("atlas category %q: maintenance_interval_days must be positive", e.Category)
		}
		m[e.Category] = e
	}
	return &Atlas{entries: m}, nil
}

type atlasFile struct {
	Categories []Entry `yaml:"categories"`
}

// LoadFile 从 YAML 文件加载知识库
func LoadFile(path string) (*Atlas, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read atlas file: %w", err)
	}
	var f atlasFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse atlas file %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("atlas file %s has no categories", path)
	}
	return New(f.Categories)
}

// Lookup 精确查找分类（先规范化）
func (a *Atlas) Lookup(category string) (Entry, bool) {
	e, ok := a.entries[NormalizeCategory(category)]
	return e, ok
}

// Policy 查找分类策略，未命中时返回默认阈值
func (a *Atlas) Policy(category string) Policy {
	if e, ok := a.Lookup(category); ok {
		return Policy{Entry: e, Known: true}
	}
	return Policy{
		Entry: Entry{
			Category:                NormalizeCategory(category),
			MaxContinuousUseHours:   DefaultMaxContinuousUseHours,
			MaintenanceIntervalDays: DefaultMaintenanceIntervalDays,
		},
	}
}

// Entries 按分类名排序返回全部条目
func (a *Atlas) Entries() []Entry {
	out := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
