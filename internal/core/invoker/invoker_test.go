package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nodegate/internal/core/callcache"
	"github.com/weisyn/nodegate/internal/core/infrastructure/metrics"
	"github.com/weisyn/nodegate/internal/core/substrate/testutil"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

const blockHash = "0x1111111111111111111111111111111111111111111111111111111111111111"

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// decodedCall 解码后的调用：utility.batch 内嵌一个 balances.transfer
func decodedCall() testutil.JSONCodec {
	return testutil.JSONCodec{
		Hex: "0x1a00",
		Value: map[string]any{
			"callIndex": "0x1a00",
			"args": map[string]any{
				"calls": []any{
					map[string]any{"callIndex": "0x0500", "args": map[string]any{"value": json.Number("10")}},
				},
			},
		},
	}
}

func preimageHandle(createType func(string, string) (chain.Codec, error)) *testutil.MockHandle {
	return testutil.NewMockHandle("wss://a", "polkadot-1").
		Returning(chain.CategoryQuery, "preimage", "preimageFor", testutil.MockOption{Inner: testutil.HexCodec("0x1a000500")}).
		WithMeta([2]byte{0x1a, 0x00}, "utility", "batch").
		WithMeta([2]byte{0x05, 0x00}, "balances", "transfer").
		WithCreateType(createType)
}

var preimageReq = Request{Type: "query", Namespace: "preimage", Method: "preimageFor", Params: []json.RawMessage{json.RawMessage(`["0xabc",4]`)}}

// TestInvoke_InvalidPath 测试非法路径不发起调用
func TestInvoke_InvalidPath(t *testing.T) {
	h := testutil.NewMockHandle("wss://a", "v").
		Returning(chain.CategoryQuery, "system", "account", testutil.HexCodec("0x00"))
	iv := New(Options{}, nil, nil)
	ctx := context.Background()

	cases := []Request{
		{Type: "query", Namespace: "bogus", Method: "x"},
		{Type: "query", Namespace: "system", Method: "nope"},
		{Type: "tx", Namespace: "system", Method: "account"},
		{Type: "unknown", Namespace: "system", Method: "account"},
		{Type: "", Namespace: "system", Method: "account"},
		{Type: "query", Namespace: "", Method: "account"},
	}
	for _, req := range cases {
		_, err := iv.Invoke(ctx, h, req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "%+v", req)
	}
	assert.Equal(t, 0, h.TotalCalls())
}

// TestInvoke_PassThrough 测试普通结果原样返回
func TestInvoke_PassThrough(t *testing.T) {
	var got []json.RawMessage
	account := testutil.JSONCodec{Hex: "0x01", Value: map[string]any{"nonce": json.Number("7")}}
	h := testutil.NewMockHandle("wss://a", "v").
		Register(chain.CategoryQuery, "system", "account", func(params []json.RawMessage) (chain.Codec, error) {
			got = params
			return account, nil
		}).
		Returning(chain.CategoryConsts, "balances", "existentialDeposit", testutil.HexCodec("0x0a"))

	reg := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(reg)
	iv := New(Options{}, nil, collectors)

	params := []json.RawMessage{json.RawMessage(`"ADDR"`), json.RawMessage(`2`)}
	res, err := iv.Invoke(context.Background(), h, Request{Type: "query", Namespace: "system", Method: "account", Params: params})
	require.NoError(t, err)
	assert.Equal(t, params, got, "参数按顺序展开")
	assert.Equal(t, map[string]any{"nonce": json.Number("7")}, res.Value)
	assert.Equal(t, account, res.Raw)
	assert.Nil(t, res.Decoration)

	res, err = iv.Invoke(context.Background(), h, Request{Type: "consts", Namespace: "balances", Method: "existentialDeposit"})
	require.NoError(t, err)
	assert.Equal(t, "0x0a", res.Value, "不可序列化的值输出十六进制")

	assert.Equal(t, 1.0, promtest.ToFloat64(collectors.Invocations.WithLabelValues("query", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(collectors.Invocations.WithLabelValues("consts", "ok")))
}

// TestInvoke_UpstreamFailure 测试远程调用失败
func TestInvoke_UpstreamFailure(t *testing.T) {
	h := testutil.NewMockHandle("wss://a", "v").
		Register(chain.CategoryRPC, "chain", "getBlock", func([]json.RawMessage) (chain.Codec, error) {
			return nil, errors.New("-32000: state already discarded")
		})
	iv := New(Options{}, nil, nil)

	_, err := iv.Invoke(context.Background(), h, Request{Type: "rpc", Namespace: "chain", Method: "getBlock"})
	require.Error(t, err)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, err.Error(), "state already discarded")
	assert.NotErrorIs(t, err, ErrInvalidRequest)
}

// TestInvoke_BlockHash 测试历史视图
func TestInvoke_BlockHash(t *testing.T) {
	scoped := testutil.NewMockHandle("wss://a", "polkadot-0").
		Returning(chain.CategoryQuery, "system", "number", testutil.HexCodec("0x10"))
	h := testutil.NewMockHandle("wss://a", "polkadot-1").
		Returning(chain.CategoryQuery, "system", "number", testutil.HexCodec("0xff")).
		Returning(chain.CategoryRPC, "system", "health", testutil.HexCodec("0x01")).
		WithScoped(blockHash, scoped)
	iv := New(Options{}, nil, nil)
	ctx := context.Background()

	t.Run("使用历史视图", func(t *testing.T) {
		res, err := iv.Invoke(ctx, h, Request{Type: "query", Namespace: "system", Method: "number", BlockHash: blockHash})
		require.NoError(t, err)
		assert.Equal(t, "0x10", res.Value)
	})

	t.Run("历史视图上不存在的路径", func(t *testing.T) {
		_, err := iv.Invoke(ctx, h, Request{Type: "rpc", Namespace: "system", Method: "health", BlockHash: blockHash})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("未知区块", func(t *testing.T) {
		_, err := iv.Invoke(ctx, h, Request{Type: "query", Namespace: "system", Method: "number", BlockHash: "0x22"})
		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Contains(t, err.Error(), "not found")
	})
}

// TestInvoke_CallTimeout 测试调用超时
func TestInvoke_CallTimeout(t *testing.T) {
	h := testutil.NewMockHandle("wss://a", "v").
		RegisterContext(chain.CategoryRPC, "chain", "slow", func(ctx context.Context, _ []json.RawMessage) (chain.Codec, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return testutil.HexCodec("0x00"), nil
			}
		})
	iv := New(Options{CallTimeout: 20 * time.Millisecond}, nil, nil)

	_, err := iv.Invoke(context.Background(), h, Request{Type: "rpc", Namespace: "chain", Method: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestInvoke_PreimageDecorated 测试预映像解码与装饰
func TestInvoke_PreimageDecorated(t *testing.T) {
	var gotType, gotHex string
	h := preimageHandle(func(typeName, hex string) (chain.Codec, error) {
		gotType, gotHex = typeName, hex
		return decodedCall(), nil
	})
	iv := New(Options{}, nil, nil)

	res, err := iv.Invoke(context.Background(), h, preimageReq)
	require.NoError(t, err)
	assert.Equal(t, "Call", gotType)
	assert.Equal(t, "0x1a000500", gotHex)

	require.NotNil(t, res.Decoration)
	assert.Equal(t, StatusDecorated, res.Decoration.Status)
	assert.Empty(t, res.Decoration.NodeErrors)
	assert.JSONEq(t, `{
		"args": {"calls": [{"args": {"value": 10}, "callIndex": "0x0500", "callName": "transfer", "palletName": "balances"}]},
		"callIndex": "0x1a00",
		"callName": "batch",
		"palletName": "utility"
	}`, marshal(t, res.Value))
}

// TestInvoke_PreimageFallbacks 测试预映像后处理的降级分支
func TestInvoke_PreimageFallbacks(t *testing.T) {
	ctx := context.Background()
	iv := New(Options{}, nil, nil)

	t.Run("解码失败返回原始 Option", func(t *testing.T) {
		h := preimageHandle(func(string, string) (chain.Codec, error) {
			return nil, errors.New("unable to decode")
		})
		res, err := iv.Invoke(ctx, h, preimageReq)
		require.NoError(t, err)
		assert.Equal(t, StatusDecodeFailed, res.Decoration.Status)
		assert.EqualError(t, res.Decoration.Err, "unable to decode")
		assert.Equal(t, "0x011a000500", res.Value)
	})

	t.Run("解码值不可序列化", func(t *testing.T) {
		h := preimageHandle(func(string, string) (chain.Codec, error) {
			return testutil.HexCodec("0x1a000500"), nil
		})
		res, err := iv.Invoke(ctx, h, preimageReq)
		require.NoError(t, err)
		assert.Equal(t, StatusNotSerializable, res.Decoration.Status)
		assert.Equal(t, "0x011a000500", res.Value, "保持原始 Option")
	})

	t.Run("序列化失败返回解码值", func(t *testing.T) {
		h := preimageHandle(func(string, string) (chain.Codec, error) {
			return testutil.JSONCodec{Hex: "0x1a000500", Err: errors.New("toJSON failed")}, nil
		})
		res, err := iv.Invoke(ctx, h, preimageReq)
		require.NoError(t, err)
		assert.Equal(t, StatusSerializeFailed, res.Decoration.Status)
		assert.Equal(t, "0x1a000500", res.Value)
	})

	t.Run("未知调用索引只影响该节点", func(t *testing.T) {
		h := preimageHandle(func(string, string) (chain.Codec, error) {
			return testutil.JSONCodec{Value: map[string]any{
				"callIndex": "0x1a00",
				"args":      map[string]any{"inner": map[string]any{"callIndex": "0xffff", "x": true}},
			}}, nil
		})
		res, err := iv.Invoke(ctx, h, preimageReq)
		require.NoError(t, err)
		assert.Equal(t, StatusDecorated, res.Decoration.Status)
		require.Len(t, res.Decoration.NodeErrors, 1)
		assert.Equal(t, "$.args.inner", res.Decoration.NodeErrors[0].Path)
		assert.ErrorIs(t, res.Decoration.NodeErrors[0], chain.ErrUnknownCallIndex)
		assert.JSONEq(t, `{"callIndex":"0x1a00","args":{"inner":{"callIndex":"0xffff","x":true}},"callName":"batch","palletName":"utility"}`, marshal(t, res.Value))
	})

	t.Run("None 不做后处理", func(t *testing.T) {
		h := testutil.NewMockHandle("wss://a", "v").
			Returning(chain.CategoryQuery, "preimage", "preimageFor", testutil.MockOption{})
		res, err := iv.Invoke(ctx, h, preimageReq)
		require.NoError(t, err)
		assert.Nil(t, res.Decoration)
		assert.Equal(t, "0x00", res.Value)
		assert.Equal(t, 0, h.CreateTypeCalls())
	})
}

// TestInvoke_PreimageCache 测试解码调用缓存
func TestInvoke_PreimageCache(t *testing.T) {
	cache, err := callcache.NewMemoryCache(time.Minute, 256)
	require.NoError(t, err)
	defer cache.Close()

	collectors := metrics.NewCollectors(prometheus.NewRegistry())
	iv := New(Options{}, cache, collectors)
	h := preimageHandle(func(string, string) (chain.Codec, error) {
		return decodedCall(), nil
	})
	ctx := context.Background()

	first, err := iv.Invoke(ctx, h, preimageReq)
	require.NoError(t, err)
	assert.Equal(t, StatusDecorated, first.Decoration.Status)

	second, err := iv.Invoke(ctx, h, preimageReq)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, second.Decoration.Status)
	assert.Equal(t, 1, h.CreateTypeCalls(), "命中缓存时跳过解码")
	assert.JSONEq(t, marshal(t, first.Value), marshal(t, second.Value))

	assert.Equal(t, 1.0, promtest.ToFloat64(collectors.CallCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, promtest.ToFloat64(collectors.CallCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, promtest.ToFloat64(collectors.Decorations.WithLabelValues("cached")))

	t.Run("不同运行时版本不共享缓存", func(t *testing.T) {
		other := testutil.NewMockHandle("wss://a", "polkadot-2").
			Returning(chain.CategoryQuery, "preimage", "preimageFor", testutil.MockOption{Inner: testutil.HexCodec("0x1a000500")}).
			WithCreateType(func(string, string) (chain.Codec, error) { return testutil.HexCodec("0x00"), nil })
		res, err := iv.Invoke(ctx, other, preimageReq)
		require.NoError(t, err)
		assert.Equal(t, StatusNotSerializable, res.Decoration.Status)
	})
}

// TestRender 测试结果渲染
func TestRender(t *testing.T) {
	assert.Nil(t, Render(nil))
	assert.Equal(t, "0xab", Render(testutil.HexCodec("0xab")))
	assert.Equal(t, "0xcd", Render(testutil.JSONCodec{Hex: "0xcd", Err: errors.New("x")}))
	assert.Equal(t, []any{"a"}, Render(testutil.JSONCodec{Value: []any{"a"}}))
}

// TestDecorationReport_String 测试报告描述
func TestDecorationReport_String(t *testing.T) {
	var r *DecorationReport
	assert.Equal(t, "none", r.String())
	assert.Equal(t, "decode_failed err=boom", (&DecorationReport{Status: StatusDecodeFailed, Err: errors.New("boom")}).String())
}
