package substrate

import "testing"

// 供外部测试包 substrate_test 使用的测试辅助导出
type FakeNode = fakeNode

const KnownBlock = knownBlock

func NewFakeNode(t *testing.T) *FakeNode { return newFakeNode(t) }

func (f *fakeNode) Handle(method string, h rpcHandler) { f.handle(method, h) }

func (f *fakeNode) Count(method string) int { return f.count(method) }

func Connect(t *testing.T, node *FakeNode, opts Options) *Handle { return connect(t, node, opts) }
