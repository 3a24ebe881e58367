package substrate_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nodegate/internal/core/invoker"
	"github.com/weisyn/nodegate/internal/core/lister"
	"github.com/weisyn/nodegate/internal/core/substrate"
	"github.com/weisyn/nodegate/internal/core/substrate/metadata"
	metatest "github.com/weisyn/nodegate/internal/core/substrate/metadata/testutil"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// newMetadataNode 提供真实 V14 元数据与存储的模拟节点
func newMetadataNode(t *testing.T) *substrate.FakeNode {
	node := substrate.NewFakeNode(t)
	node.Handle("state_getMetadata", func([]json.RawMessage) (any, *substrate.RPCError) {
		return metatest.MetadataHex(), nil
	})
	node.Handle("state_getStorage", func(params []json.RawMessage) (any, *substrate.RPCError) {
		var key string
		if len(params) > 0 {
			_ = json.Unmarshal(params[0], &key)
		}
		if strings.HasPrefix(key, metatest.SystemAccountPrefix) {
			return metatest.AccountInfoHex, nil
		}
		return metatest.PreimageHex, nil
	})
	return node
}

func rawParams(params ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(params))
	for i, p := range params {
		out[i] = json.RawMessage(p)
	}
	return out
}

// TestConnector_MetadataRuntime 测试元数据运行时经连接器挂载到句柄
func TestConnector_MetadataRuntime(t *testing.T) {
	node := newMetadataNode(t)
	h := substrate.Connect(t, node, substrate.Options{Loader: metadata.NewLoader()})
	ctx := context.Background()
	hash := `"0x` + strings.Repeat("ab", 32) + `"`

	t.Run("query.system.account", func(t *testing.T) {
		iv := invoker.New(invoker.Options{}, nil, nil)
		res, err := iv.Invoke(ctx, h, invoker.Request{
			Type: "query", Namespace: "system", Method: "account",
			Params: rawParams(`"` + metatest.AliceAddress + `"`),
		})
		require.NoError(t, err)
		b, err := json.Marshal(res.Value)
		require.NoError(t, err)
		assert.JSONEq(t, `{"nonce":1,"providers":1,"data":{"free":1000,"reserved":0}}`, string(b))
	})

	t.Run("列举 tx 方法", func(t *testing.T) {
		assert.Equal(t, map[string][]string{
			"system":   {"remark"},
			"balances": {"transferAllowDeath", "transferAll"},
			"utility":  {"batch"},
		}, lister.Methods(h.Capabilities(), chain.CategoryTx))
		assert.Contains(t, h.Capabilities().Namespaces(chain.CategoryRPC), "chain", "rpc 类别仍来自 rpc_methods")
	})

	t.Run("预映像解码并装饰", func(t *testing.T) {
		iv := invoker.New(invoker.Options{}, nil, nil)
		res, err := iv.Invoke(ctx, h, invoker.Request{
			Type: "query", Namespace: "preimage", Method: "preimageFor",
			Params: rawParams(`[` + hash + `, 37]`),
		})
		require.NoError(t, err)
		require.NotNil(t, res.Decoration)
		assert.Equal(t, invoker.StatusDecorated, res.Decoration.Status)
		assert.Empty(t, res.Decoration.NodeErrors)

		b, err := json.Marshal(res.Value)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"callIndex":"0x0500",
			"args":{"dest":{"id":"`+metatest.AlicePub+`"},"value":12345},
			"callName":"transferAllowDeath",
			"palletName":"balances"
		}`, string(b))
	})

	t.Run("历史视图加载区块元数据", func(t *testing.T) {
		before := node.Count("state_getMetadata")
		scoped, err := h.At(ctx, substrate.KnownBlock)
		require.NoError(t, err)
		assert.Equal(t, before+1, node.Count("state_getMetadata"), "区块运行时版本不同")

		fn, ok := scoped.Capabilities().Lookup(chain.Path{Category: chain.CategoryQuery, Namespace: "system", Method: "account"})
		require.True(t, ok)
		_, err = fn(ctx, rawParams(`"`+metatest.AliceAddress+`"`))
		require.NoError(t, err)

		meta, err := scoped.FindMetaCall([]byte{5, 0})
		require.NoError(t, err)
		assert.Equal(t, "transferAllowDeath", meta.Name)
	})
}

// TestConnector_WithoutRuntime 测试未挂载运行时只发现 rpc 类别
func TestConnector_WithoutRuntime(t *testing.T) {
	node := newMetadataNode(t)
	h := substrate.Connect(t, node, substrate.Options{})

	_, ok := h.Capabilities().Lookup(chain.Path{Category: chain.CategoryQuery, Namespace: "system", Method: "account"})
	assert.False(t, ok)
	assert.Empty(t, lister.Methods(h.Capabilities(), chain.CategoryTx))
}
