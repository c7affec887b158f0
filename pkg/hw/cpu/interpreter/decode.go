package interpreter

import "github.com/Manu343726/rvsdb/pkg/utils"

// Major opcodes
const (
	opLUI    uint32 = 0b0110111
	opAUIPC  uint32 = 0b0010111
	opJAL    uint32 = 0b1101111
	opJALR   uint32 = 0b1100111
	opBRANCH uint32 = 0b1100011
	opLOAD   uint32 = 0b0000011
	opSTORE  uint32 = 0b0100011
	opIMM    uint32 = 0b0010011
	opOP     uint32 = 0b0110011
	opSYSTEM uint32 = 0b1110011
)

const (
	instECALL  uint32 = 0x00000073
	instEBREAK uint32 = 0x00100073
	instMRET   uint32 = 0x30200073
)

// RetInstruction is the encoding of jalr x0, 0(ra)
const RetInstruction uint32 = 0x00008067

type decoded struct {
	inst   uint32
	opcode uint32
	rd     uint32
	funct3 uint32
	rs1    uint32
	rs2    uint32
	funct7 uint32
}

func decode(inst uint32) decoded {
	return decoded{
		inst:   inst,
		opcode: utils.Field(inst, 0, 7),
		rd:     utils.Field(inst, 7, 5),
		funct3: utils.Field(inst, 12, 3),
		rs1:    utils.Field(inst, 15, 5),
		rs2:    utils.Field(inst, 20, 5),
		funct7: utils.Field(inst, 25, 7),
	}
}

func (d decoded) immI() uint32 {
	return utils.SignExtend(utils.Field(d.inst, 20, 12), 12)
}

func (d decoded) immS() uint32 {
	return utils.SignExtend(utils.Field(d.inst, 25, 7)<<5|utils.Field(d.inst, 7, 5), 12)
}

func (d decoded) immB() uint32 {
	imm := utils.Field(d.inst, 31, 1)<<12 |
		utils.Field(d.inst, 7, 1)<<11 |
		utils.Field(d.inst, 25, 6)<<5 |
		utils.Field(d.inst, 8, 4)<<1
	return utils.SignExtend(imm, 13)
}

func (d decoded) immU() uint32 {
	return d.inst &^ utils.AllOnes[uint32](12)
}

func (d decoded) immJ() uint32 {
	imm := utils.Field(d.inst, 31, 1)<<20 |
		utils.Field(d.inst, 12, 8)<<12 |
		utils.Field(d.inst, 20, 1)<<11 |
		utils.Field(d.inst, 21, 10)<<1
	return utils.SignExtend(imm, 21)
}
