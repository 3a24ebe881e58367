// Package testutil 提供测试用的 V14 元数据
//
// 链上布局：
//   - System(0)：存储 Account / Number，调用 remark，常量 BlockHashCount
//   - Balances(5)：调用 transfer_allow_death / transfer_all，常量 ExistentialDeposit
//   - Utility(6)：调用 batch(calls: Vec<RuntimeCall>)
//   - Preimage(10)：存储 PreimageFor((H256, u32)) -> Option<BoundedVec<u8>>
package testutil

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

const (
	// AlicePub 测试账户公钥
	AlicePub = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"

	// AliceAddress 测试账户的 SS58 地址（前缀 42）
	AliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

	// SystemAccountPrefix System.Account 存储键前缀（twox128(System) ++ twox128(Account)）
	SystemAccountPrefix = "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9"

	// AccountInfoHex nonce=1 providers=1 free=1000 reserved=0
	AccountInfoHex = "0x" +
		"01000000" + "01000000" +
		"e8030000000000000000000000000000" +
		"00000000000000000000000000000000"

	// TransferCallHex balances.transferAllowDeath(dest: Id(Alice), value: 12345)
	TransferCallHex = "0x0500" + "00" + "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d" + "e5c0"

	// PreimageHex PreimageFor 的存储值：compact(37) ++ TransferCall
	PreimageHex = "0x94" + "0500" + "00" + "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d" + "e5c0"
)

// 类型编号
const (
	TypeU8 = iota
	TypeBytes
	TypeU8x32
	TypeAccountID
	TypeU32
	TypeU128
	TypeAccountData
	TypeAccountInfo
	TypeCompactU128
	TypeMultiAddress
	TypeBalancesCall
	TypeSystemCall
	TypeRuntimeCall
	TypeBool
	TypeH256
	TypeBoundedVec
	TypeHashLen
	TypeCallList
	TypeUtilityCall
	TypeI32
	TypeOptionU32
	TypeStr
)

func id(n int) types.Si1LookupTypeID {
	return types.Si1LookupTypeID{UCompact: types.NewUCompactFromUInt(uint64(n))}
}

func prim(p uint8) types.Si1TypeDef {
	return types.Si1TypeDef{IsPrimitive: true, Primitive: types.Si1TypeDefPrimitive{Si0TypeDefPrimitive: types.Si0TypeDefPrimitive(p)}}
}

func named(name string, typ int) types.Si1Field {
	return types.Si1Field{HasName: true, Name: types.Text(name), Type: id(typ)}
}

func unnamed(typ int) types.Si1Field {
	return types.Si1Field{Type: id(typ)}
}

func composite(fields ...types.Si1Field) types.Si1TypeDef {
	return types.Si1TypeDef{IsComposite: true, Composite: types.Si1TypeDefComposite{Fields: fields}}
}

func variant(vs ...types.Si1Variant) types.Si1TypeDef {
	return types.Si1TypeDef{IsVariant: true, Variant: types.Si1TypeDefVariant{Variants: vs}}
}

func v(name string, index uint8, fields ...types.Si1Field) types.Si1Variant {
	return types.Si1Variant{Name: types.Text(name), Index: types.U8(index), Fields: fields}
}

func path(segments ...string) types.Si1Path {
	p := make(types.Si1Path, len(segments))
	for i, s := range segments {
		p[i] = types.Text(s)
	}
	return p
}

func portable(n int, p types.Si1Path, def types.Si1TypeDef) types.PortableTypeV14 {
	return types.PortableTypeV14{ID: id(n), Type: types.Si1Type{Path: p, Def: def}}
}

// Metadata 构建测试元数据
func Metadata() *types.Metadata {
	lookup := []types.PortableTypeV14{
		portable(TypeU8, nil, prim(3)),
		portable(TypeBytes, nil, types.Si1TypeDef{IsSequence: true, Sequence: types.Si1TypeDefSequence{Type: id(TypeU8)}}),
		portable(TypeU8x32, nil, types.Si1TypeDef{IsArray: true, Array: types.Si1TypeDefArray{Len: 32, Type: id(TypeU8)}}),
		portable(TypeAccountID, path("sp_core", "crypto", "AccountId32"), composite(unnamed(TypeU8x32))),
		portable(TypeU32, nil, prim(5)),
		portable(TypeU128, nil, prim(7)),
		portable(TypeAccountData, path("pallet_balances", "types", "AccountData"),
			composite(named("free", TypeU128), named("reserved", TypeU128))),
		portable(TypeAccountInfo, path("frame_system", "AccountInfo"),
			composite(named("nonce", TypeU32), named("providers", TypeU32), named("data", TypeAccountData))),
		portable(TypeCompactU128, nil, types.Si1TypeDef{IsCompact: true, Compact: types.Si1TypeDefCompact{Type: id(TypeU128)}}),
		portable(TypeMultiAddress, path("sp_runtime", "multiaddress", "MultiAddress"),
			variant(v("Id", 0, unnamed(TypeAccountID)), v("Raw", 2, unnamed(TypeBytes)))),
		portable(TypeBalancesCall, path("pallet_balances", "pallet", "Call"),
			variant(
				v("transfer_allow_death", 0, named("dest", TypeMultiAddress), named("value", TypeCompactU128)),
				v("transfer_all", 4, named("dest", TypeMultiAddress), named("keep_alive", TypeBool)),
			)),
		portable(TypeSystemCall, path("frame_system", "pallet", "Call"),
			variant(v("remark", 0, named("remark", TypeBytes)))),
		portable(TypeRuntimeCall, path("node_runtime", "RuntimeCall"),
			variant(
				v("System", 0, unnamed(TypeSystemCall)),
				v("Balances", 5, unnamed(TypeBalancesCall)),
				v("Utility", 6, unnamed(TypeUtilityCall)),
			)),
		portable(TypeBool, nil, prim(0)),
		portable(TypeH256, path("primitive_types", "H256"), composite(unnamed(TypeU8x32))),
		portable(TypeBoundedVec, path("bounded_collections", "bounded_vec", "BoundedVec"), composite(unnamed(TypeBytes))),
		portable(TypeHashLen, nil, types.Si1TypeDef{IsTuple: true, Tuple: types.Si1TypeDefTuple{id(TypeH256), id(TypeU32)}}),
		portable(TypeCallList, nil, types.Si1TypeDef{IsSequence: true, Sequence: types.Si1TypeDefSequence{Type: id(TypeRuntimeCall)}}),
		portable(TypeUtilityCall, path("pallet_utility", "pallet", "Call"),
			variant(v("batch", 0, named("calls", TypeCallList)))),
		portable(TypeI32, nil, prim(11)),
		portable(TypeOptionU32, path("Option"), variant(v("None", 0), v("Some", 1, unnamed(TypeU32)))),
		portable(TypeStr, nil, prim(2)),
	}

	pallets := []types.PalletMetadataV14{
		{
			Name:       "System",
			HasStorage: true,
			Storage: types.StorageMetadataV14{
				Prefix: "System",
				Items: []types.StorageEntryMetadataV14{
					{
						Name:     "Account",
						Modifier: types.StorageFunctionModifierV0{IsDefault: true},
						Type: types.StorageEntryTypeV14{
							IsMap: true,
							AsMap: types.MapTypeV14{
								Hashers: []types.StorageHasherV10{{IsBlake2_128Concat: true}},
								Key:     id(TypeAccountID),
								Value:   id(TypeAccountInfo),
							},
						},
						Fallback: make(types.Bytes, 40),
					},
					{
						Name:     "Number",
						Modifier: types.StorageFunctionModifierV0{IsDefault: true},
						Type:     types.StorageEntryTypeV14{IsPlainType: true, AsPlainType: id(TypeU32)},
						Fallback: types.Bytes{0, 0, 0, 0},
					},
				},
			},
			HasCalls: true,
			Calls:    types.FunctionMetadataV14{Type: id(TypeSystemCall)},
			Constants: []types.ConstantMetadataV14{
				{Name: "BlockHashCount", Type: id(TypeU32), Value: types.Bytes{0x60, 0x09, 0, 0}},
			},
			Index: 0,
		},
		{
			Name:     "Balances",
			HasCalls: true,
			Calls:    types.FunctionMetadataV14{Type: id(TypeBalancesCall)},
			Constants: []types.ConstantMetadataV14{
				{Name: "ExistentialDeposit", Type: id(TypeU128), Value: types.Bytes{0xf4, 0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
			},
			Index: 5,
		},
		{
			Name:     "Utility",
			HasCalls: true,
			Calls:    types.FunctionMetadataV14{Type: id(TypeUtilityCall)},
			Index:    6,
		},
		{
			Name:       "Preimage",
			HasStorage: true,
			Storage: types.StorageMetadataV14{
				Prefix: "Preimage",
				Items: []types.StorageEntryMetadataV14{
					{
						Name:     "PreimageFor",
						Modifier: types.StorageFunctionModifierV0{IsOptional: true},
						Type: types.StorageEntryTypeV14{
							IsMap: true,
							AsMap: types.MapTypeV14{
								Hashers: []types.StorageHasherV10{{IsIdentity: true}},
								Key:     id(TypeHashLen),
								Value:   id(TypeBoundedVec),
							},
						},
					},
				},
			},
			Index: 10,
		},
	}

	m := types.MetadataV14{Pallets: pallets, Type: id(TypeRuntimeCall)}
	m.Lookup.Types = lookup
	m.Extrinsic.Version = 4

	return &types.Metadata{
		MagicNumber:   0x6174656d,
		Version:       14,
		AsMetadataV14: m,
	}
}

// MetadataHex SCALE 编码的测试元数据
func MetadataHex() string {
	s, err := codec.EncodeToHex(Metadata())
	if err != nil {
		panic(err)
	}
	return s
}
