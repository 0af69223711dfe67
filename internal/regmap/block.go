// internal/regmap/block.go
package regmap

import "fmt"

// Block is a typed view over one full register window.
// It holds exactly what the device exposes and nothing else.
type Block struct {
	Version   float32
	Cmd       Cmd
	Status    Status
	Z         float32
	ZSignal   int32
	H0        float32
	DH        float32
	N         int32
	Dis       float32
	Heartbeat int16
}

// Decode converts a TotalRegs window into a Block.
// VERSION is decoded from words 0..1 and therefore includes the CMD word.
func Decode(regs []uint16) (Block, error) {
	if len(regs) < TotalRegs {
		return Block{}, fmt.Errorf("regmap: short block: got=%d want=%d", len(regs), TotalRegs)
	}
	return Block{
		Version:   Float32At(regs, OffVersion),
		Cmd:       Cmd(DecodeInt16(regs[OffCmd])),
		Status:    Status(DecodeInt16(regs[OffStatus])),
		Z:         Float32At(regs, OffZ),
		ZSignal:   Int32At(regs, OffZSignal),
		H0:        Float32At(regs, OffH0),
		DH:        Float32At(regs, OffDH),
		N:         Int32At(regs, OffN),
		Dis:       Float32At(regs, OffDis),
		Heartbeat: DecodeInt16(regs[OffHeartbeat]),
	}, nil
}

// Encode converts a Block into a full window.
// Layout is protocol-locked: VERSION is written first, CMD second,
// so CMD wins the shared word.
func Encode(b Block) []uint16 {
	regs := make([]uint16, TotalRegs)

	PutFloat32(regs, OffVersion, b.Version)
	regs[OffCmd] = EncodeInt16(int16(b.Cmd))
	regs[OffStatus] = EncodeInt16(int16(b.Status))
	PutFloat32(regs, OffZ, b.Z)
	PutInt32(regs, OffZSignal, b.ZSignal)
	PutFloat32(regs, OffH0, b.H0)
	PutFloat32(regs, OffDH, b.DH)
	PutInt32(regs, OffN, b.N)
	PutFloat32(regs, OffDis, b.Dis)
	regs[OffHeartbeat] = EncodeInt16(b.Heartbeat)

	return regs
}

// EncodeSegmentParams packs H0, DH, N and DIS into one contiguous write
// starting at OffH0.
func EncodeSegmentParams(h0, dh float32, n int32, dis float32) []uint16 {
	regs := make([]uint16, SegmentParamWords)
	PutFloat32(regs, OffH0-OffH0, h0)
	PutFloat32(regs, OffDH-OffH0, dh)
	PutInt32(regs, OffN-OffH0, n)
	PutFloat32(regs, OffDis-OffH0, dis)
	return regs
}

func (b Block) String() string {
	return fmt.Sprintf("version=%g cmd=%s status=%s z=%.1f z_signal=%d h0=%.1f dh=%.1f n=%d dis=%.1f hb=%d",
		b.Version, b.Cmd, b.Status, b.Z, b.ZSignal, b.H0, b.DH, b.N, b.Dis, b.Heartbeat)
}
