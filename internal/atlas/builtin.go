package atlas

var builtin = []Entry{
	{Wheelchair, "Check brakes and wheels. Ensure proper fit for patient. Clean after use. Verify patient safety.", false, false, 4, 90},
	{StretcherGurney, "Verify safety straps. Check wheels and brakes. Ensure clean linens. Test emergency functions.", true, true, 2, 30},
	{PortableXRay, "Calibrate imaging sensors. Verify radiation safety protocols. Check battery status. Ensure proper positioning.", true, false, 6, 60},
	{PortableUltrasound, "Calibrate transducer. Verify image quality. Check battery. Clean probe after use.", true, false, 4, 45},
	{MobileECG, "Apply electrodes correctly. Verify signal quality. Monitor for arrhythmias. Clean electrodes after use.", true, true, 2, 30},
	{IVPoleWheeled, "Check IV bag security. Verify pump connections. Ensure proper height adjustment. Clean wheels.", false, false, 12, 60},
	{MobileVitalSigns, "Calibrate sensors. Verify readings accuracy. Check battery status. Clean sensors after use.", false, false, 8, 45},
	{DefibrillatorCart, "Check battery charge. Verify electrode pads. Test emergency functions. Ensure rapid response capability.", true, true, 1, 15},
	{InfusionPumpStand, "Verify pump settings. Check IV line connections. Monitor flow rate. Ensure proper medication delivery.", true, true, 8, 30},
	{CrashCart, "Check emergency supplies. Verify medication expiration. Test defibrillator. Ensure rapid access.", true, true, 0.5, 7},
	{PortableVentilator, "Verify settings match patient requirements. Monitor alarms. Check connections. Ensure battery backup.", true, true, 4, 15},
	{AnesthesiaCart, "Check medication inventory. Verify equipment functionality. Ensure sterile conditions. Monitor patient vitals.", true, true, 6, 7},
}

// Default 内置的 12 类设备知识库
func Default() *Atlas {
	a, err := New(builtin)
	if err != nil {
		panic(err)
	}
	return a
}
