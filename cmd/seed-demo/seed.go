package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/registry"
)

// demoAsset 演示资产；associate 为 true 的租赁资产登记后立即关联
type demoAsset struct {
	req       registry.RegisterRequest
	associate bool
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// demoAssets 覆盖 rfid-simulator 脚本中的全部资产编码
var demoAssets = []demoAsset{
	{req: registry.RegisterRequest{AssetCode: "INF001", Name: "Infusion Pump A", Category: "Infusion Pump Stand", Ownership: domain.OwnershipHospital, Manufacturer: "Baxter", SerialNumber: "BX-44120"}},
	{req: registry.RegisterRequest{AssetCode: "VENT001", Name: "Ventilator B", Category: "Portable Ventilator", Ownership: domain.OwnershipHospital, Manufacturer: "Hamilton", SerialNumber: "HM-90211"}},
	{req: registry.RegisterRequest{AssetCode: "MON001", Name: "Patient Monitor C", Category: "Mobile Vital Signs", Ownership: domain.OwnershipHospital, Manufacturer: "Philips", SerialNumber: "PH-30017"}},
	{req: registry.RegisterRequest{AssetCode: "WC001", Name: "Wheelchair D", Category: "Wheelchair", Ownership: domain.OwnershipHospital, Manufacturer: "Invacare", SerialNumber: "IV-77810"}},
	{req: registry.RegisterRequest{AssetCode: "CC001", Name: "Crash Cart E", Category: "Crash Cart", Ownership: domain.OwnershipHospital, Location: "ER"}},
	{req: registry.RegisterRequest{AssetCode: "DF001", Name: "Defibrillator Cart F", Category: "Defibrillator Cart", Ownership: domain.OwnershipHospital, Location: "ICU"}},
	{
		req: registry.RegisterRequest{
			SerialNumber: "XR-5520331",
			Name:         "Portable X-Ray G",
			Category:     "Portable XRay",
			Ownership:    domain.OwnershipRental,
			Vendor:       strPtr("MedRent Supply"),
			RentalRate:   floatPtr(120),
		},
		associate: true,
	},
	{
		req: registry.RegisterRequest{
			SerialNumber: "US-0088123",
			Name:         "Portable Ultrasound H",
			Category:     "Portable Ultrasound",
			Ownership:    domain.OwnershipRental,
			Vendor:       strPtr("MedRent Supply"),
			RentalRate:   floatPtr(85.5),
		},
	},
}

// SeedDemoAssets 写入演示资产，已存在的编码跳过
func SeedDemoAssets(ctx context.Context, reg registry.Registry, logger *zap.Logger) (created, skipped int, err error) {
	for _, d := range demoAssets {
		a, err := reg.Register(ctx, d.req)
		if errors.Is(err, domain.ErrDuplicateIdentifier) {
			skipped++
			logger.Info("Demo asset exists, skipping", zap.String("name", d.req.Name))
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("register %s: %w", d.req.Name, err)
		}
		if d.associate {
			code := a.AssetCode
			if a, err = reg.Associate(ctx, code); err != nil {
				return created, skipped, fmt.Errorf("associate %s: %w", code, err)
			}
		}
		created++
		logger.Info("Demo asset registered",
			zap.String("asset_code", a.AssetCode),
			zap.String("category", a.Category),
			zap.String("status", string(a.Status)),
		)
	}
	return created, skipped, nil
}
