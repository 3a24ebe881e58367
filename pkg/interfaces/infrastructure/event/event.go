// Package event 定义进程内事件总线接口
package event

// EventType 事件主题
type EventType string

// EventBus 事件总线
//
// handler 为任意函数，参数需与 Publish 传入的参数一一对应。
type EventBus interface {
	// Subscribe 同步订阅
	Subscribe(eventType EventType, handler interface{}) error

	// SubscribeAsync 异步订阅，transactional 为 true 时同一处理器串行执行
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error

	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error

	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})

	// HasCallback 主题上是否存在订阅者
	HasCallback(eventType EventType) bool

	// WaitAsync 等待异步处理器执行完成
	WaitAsync()
}
