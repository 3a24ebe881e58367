// Package metadata 基于 V14 元数据的运行时类型系统
//
// 从 state_getMetadata 的结果构建类型表，并为每个 pallet 注册三类能力：
//   - query：存储项，参数为存储键，经 state_getStorage 读取后按值类型解码
//   - tx：调用构造，参数按调用字段编码，返回未签名的调用
//   - consts：常量，直接解码元数据中的常量值
//
// 命名空间与方法名统一转为小驼峰，例如 System.Account -> system.account，
// Balances.transfer_keep_alive -> balances.transferKeepAlive。
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/internal/core/capability"
	logmod "github.com/weisyn/nodegate/internal/core/infrastructure/log"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// maxCachedVersions 每个连接缓存的历史运行时版本数
const maxCachedVersions = 8

// Loader 元数据运行时加载器
type Loader struct{}

// 编译时校验
var (
	_ chain.RuntimeLoader = (*Loader)(nil)
	_ chain.Runtime       = (*Runtime)(nil)
)

// NewLoader 创建加载器
func NewLoader() *Loader {
	return &Loader{}
}

// Load 解析元数据并绑定到当前链头
func (l *Loader) Load(ctx context.Context, metadata []byte, caller chain.RPCCaller) (chain.Runtime, error) {
	reg, err := parse(metadata)
	if err != nil {
		return nil, err
	}
	version, err := specVersion(ctx, caller)
	if err != nil {
		return nil, err
	}
	logmod.Infof("运行时元数据已加载: spec_version=%d pallets=%d types=%d",
		version, len(reg.pallets), len(reg.types))

	versions := &versionCache{entries: map[uint32]*typeRegistry{version: reg}}
	return &Runtime{reg: reg, caller: caller, versions: versions, version: version}, nil
}

// parse 解码 SCALE 编码的元数据
func parse(metadata []byte) (*typeRegistry, error) {
	var meta types.Metadata
	if err := codec.Decode(metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return newTypeRegistry(&meta)
}

// Runtime 绑定到某一区块（或链头）的运行时
type Runtime struct {
	reg      *typeRegistry
	caller   chain.RPCCaller
	versions *versionCache
	version  uint32
	at       string // 空表示链头
}

// Register 注册 query/tx/consts 能力
func (rt *Runtime) Register(reg chain.Registrar) error {
	pallets := rt.reg.meta.AsMetadataV14.Pallets
	for i := range pallets {
		p := &pallets[i]
		ns := lowerFirst(string(p.Name))

		if p.HasStorage {
			for j := range p.Storage.Items {
				item := &p.Storage.Items[j]
				path := chain.Path{Category: chain.CategoryQuery, Namespace: ns, Method: lowerFirst(string(item.Name))}
				if err := register(reg, path, rt.storageCapability(p, item)); err != nil {
					return err
				}
			}
		}

		if p.HasCalls {
			t, err := rt.reg.lookup(p.Calls.Type.Int64())
			if err != nil {
				return err
			}
			for j := range t.Def.Variant.Variants {
				v := &t.Def.Variant.Variants[j]
				path := chain.Path{Category: chain.CategoryTx, Namespace: ns, Method: camelCase(string(v.Name))}
				if err := register(reg, path, rt.txCapability(uint8(p.Index), v)); err != nil {
					return err
				}
			}
		}

		for j := range p.Constants {
			c := &p.Constants[j]
			path := chain.Path{Category: chain.CategoryConsts, Namespace: ns, Method: lowerFirst(string(c.Name))}
			if err := register(reg, path, rt.constCapability(c)); err != nil {
				return err
			}
		}
	}
	return nil
}

func register(reg chain.Registrar, path chain.Path, fn chain.Capability) error {
	if err := reg.Register(path, fn); err != nil && !errors.Is(err, capability.ErrDuplicate) {
		return err
	}
	return nil
}

// CreateType 按类型名解码，Call/RuntimeCall 解码为运行时调用，其余按类型路径末段匹配
func (rt *Runtime) CreateType(typeName string, hex string) (chain.Codec, error) {
	data, err := hexutil.Decode(hex)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if typeName == "Call" || typeName == "RuntimeCall" {
		return callCodec(rt.decodeCall(data))
	}

	id, ok := rt.reg.typeByName(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}
	return valueCodec(rt.value(id, data))
}

// callCodec 出错时返回无类型的 nil
func callCodec(c *Call, err error) (chain.Codec, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

// valueCodec 出错时返回无类型的 nil
func valueCodec(v *Value, err error) (chain.Codec, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindMetaCall 按 pallet 索引与调用索引查找
func (rt *Runtime) FindMetaCall(callIndex []byte) (*chain.CallMeta, error) {
	if len(callIndex) != 2 {
		return nil, fmt.Errorf("%w: expected 2 bytes, got %d", chain.ErrUnknownCallIndex, len(callIndex))
	}
	p, v, err := rt.reg.callVariant(callIndex[0], callIndex[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrUnknownCallIndex, err)
	}
	return &chain.CallMeta{
		Section: lowerFirst(string(p.Name)),
		Name:    camelCase(string(v.Name)),
		Index:   [2]byte{callIndex[0], callIndex[1]},
	}, nil
}

// At 返回固定在指定区块的视图，区块所在运行时版本不同时加载该区块的元数据
func (rt *Runtime) At(ctx context.Context, blockHash string, caller chain.RPCCaller) (chain.Runtime, error) {
	version, err := specVersion(ctx, caller, blockHash)
	if err != nil {
		return nil, err
	}

	reg, ok := rt.versions.get(version)
	if !ok {
		raw, err := caller.Call(ctx, "state_getMetadata", blockHash)
		if err != nil {
			return nil, err
		}
		var metaHex string
		if err := json.Unmarshal(raw, &metaHex); err != nil {
			return nil, fmt.Errorf("decode state_getMetadata: %w", err)
		}
		metadata, err := hexutil.Decode(metaHex)
		if err != nil {
			return nil, fmt.Errorf("decode metadata hex: %w", err)
		}
		if reg, err = parse(metadata); err != nil {
			return nil, err
		}
		rt.versions.put(version, reg)
		logmod.Infof("加载历史运行时元数据: at=%s spec_version=%d", blockHash, version)
	}

	return &Runtime{reg: reg, caller: caller, versions: rt.versions, version: version, at: blockHash}, nil
}

func (rt *Runtime) storageCapability(p *types.PalletMetadataV14, item *types.StorageEntryMetadataV14) chain.Capability {
	prefix, name := string(p.Storage.Prefix), string(item.Name)
	return func(ctx context.Context, params []json.RawMessage) (chain.Codec, error) {
		args, err := rt.storageArgs(item, params)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", prefix, name, err)
		}
		key, err := types.CreateStorageKey(rt.reg.meta, prefix, name, args...)
		if err != nil {
			return nil, fmt.Errorf("%s.%s storage key: %w", prefix, name, err)
		}

		callParams := []any{hexutil.Encode(key)}
		if rt.at != "" {
			callParams = append(callParams, rt.at)
		}
		raw, err := rt.caller.Call(ctx, "state_getStorage", callParams...)
		if err != nil {
			return nil, err
		}
		var stored *string
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, fmt.Errorf("decode state_getStorage: %w", err)
		}

		valueType := item.Type.AsPlainType.Int64()
		if item.Type.IsMap {
			valueType = item.Type.AsMap.Value.Int64()
		}

		var data []byte
		if stored != nil {
			if data, err = hexutil.Decode(*stored); err != nil {
				return nil, fmt.Errorf("decode storage hex: %w", err)
			}
		}

		if item.Modifier.IsOptional {
			if stored == nil {
				return &Option{}, nil
			}
			v, err := rt.value(valueType, data)
			if err != nil {
				return nil, err
			}
			return &Option{inner: v}, nil
		}
		if stored == nil {
			logmod.Debugf("存储项为空，使用默认值: %s.%s", prefix, name)
			data = item.Fallback
		}
		return valueCodec(rt.value(valueType, data))
	}
}

// storageArgs 将参数编码为存储键，多级映射的键类型为元组
func (rt *Runtime) storageArgs(item *types.StorageEntryMetadataV14, params []json.RawMessage) ([][]byte, error) {
	if !item.Type.IsMap {
		if len(params) > 0 {
			return nil, fmt.Errorf("plain storage takes no arguments, got %d", len(params))
		}
		return nil, nil
	}

	keyType := item.Type.AsMap.Key.Int64()
	keys := []int64{keyType}
	if n := len(item.Type.AsMap.Hashers); n > 1 {
		t, err := rt.reg.lookup(keyType)
		if err != nil {
			return nil, err
		}
		if !t.Def.IsTuple || len(t.Def.Tuple) != n {
			return nil, fmt.Errorf("key type %d does not match %d hashers", keyType, n)
		}
		keys = keys[:0]
		for _, el := range t.Def.Tuple {
			keys = append(keys, el.Int64())
		}
	}
	if len(params) != len(keys) {
		return nil, fmt.Errorf("expected %d key arguments, got %d", len(keys), len(params))
	}

	args := make([][]byte, len(keys))
	for i, id := range keys {
		b, err := encodeValue(rt.reg, id, params[i])
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		args[i] = b
	}
	return args, nil
}

func (rt *Runtime) txCapability(palletIdx uint8, v *types.Si1Variant) chain.Capability {
	return func(_ context.Context, params []json.RawMessage) (chain.Codec, error) {
		if len(params) != len(v.Fields) {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", v.Name, len(v.Fields), len(params))
		}
		data := []byte{palletIdx, uint8(v.Index)}
		for i, f := range v.Fields {
			b, err := encodeValue(rt.reg, f.Type.Int64(), params[i])
			if err != nil {
				return nil, fmt.Errorf("%s arg %s: %w", v.Name, f.Name, err)
			}
			data = append(data, b...)
		}
		return callCodec(rt.decodeCall(data))
	}
}

func (rt *Runtime) constCapability(c *types.ConstantMetadataV14) chain.Capability {
	return func(context.Context, []json.RawMessage) (chain.Codec, error) {
		return valueCodec(rt.value(c.Type.Int64(), c.Value))
	}
}

func (rt *Runtime) value(id int64, data []byte) (*Value, error) {
	v, err := decodeValue(rt.reg, id, data)
	if err != nil {
		return nil, err
	}
	return &Value{raw: data, value: v, bytes: rt.reg.isBytes(id)}, nil
}

func (rt *Runtime) decodeCall(data []byte) (*Call, error) {
	d := newDecoder(rt.reg, data)
	v, err := d.decodeCall(0)
	if err != nil {
		return nil, fmt.Errorf("decode call: %w", err)
	}
	if d.buf.Len() != 0 {
		return nil, fmt.Errorf("decode call: %w: %d", ErrTrailingBytes, d.buf.Len())
	}
	return &Call{
		call: types.Call{
			CallIndex: types.CallIndex{SectionIndex: data[0], MethodIndex: data[1]},
			Args:      types.Args(data[2:]),
		},
		value: v,
	}, nil
}

type runtimeVersion struct {
	SpecVersion uint32 `json:"specVersion"`
}

func specVersion(ctx context.Context, caller chain.RPCCaller, at ...any) (uint32, error) {
	raw, err := caller.Call(ctx, "state_getRuntimeVersion", at...)
	if err != nil {
		return 0, err
	}
	var rv runtimeVersion
	if err := json.Unmarshal(raw, &rv); err != nil {
		return 0, fmt.Errorf("decode runtime version: %w", err)
	}
	return rv.SpecVersion, nil
}

// versionCache 同一连接上按 spec 版本共享的类型表
type versionCache struct {
	mu      sync.Mutex
	entries map[uint32]*typeRegistry
}

func (c *versionCache) get(version uint32) (*typeRegistry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[version]
	return r, ok
}

func (c *versionCache) put(version uint32, reg *typeRegistry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCachedVersions {
		for v := range c.entries {
			delete(c.entries, v)
			break
		}
	}
	c.entries[version] = reg
}
