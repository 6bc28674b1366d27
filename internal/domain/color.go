package domain

type Color string

// HostColor is reserved for the host and never handed to guests.
const HostColor Color = "#1877f2"

var GuestPalette = []Color{
	"#FF6B6B", // coral red
	"#4ECDC4", // turquoise
	"#96CEB4", // sage green
	"#FFEEAD", // cream yellow
	"#D4A5A5", // dusty rose
	"#9B59B6", // purple
	"#E67E22", // orange
	"#27AE60", // green
	"#F1C40F", // yellow
	"#E74C3C", // red
	"#16A085", // teal
	"#2C3E50", // navy
	"#8E44AD", // violet
	"#F39C12", // dark orange
}
