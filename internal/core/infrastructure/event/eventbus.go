// 基于 asaskevich/EventBus 的事件总线实现

package event

import (
	evbus "github.com/asaskevich/EventBus"

	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/event"
)

// EventBus asaskevich/EventBus 的薄封装
//
// 禁用时所有订阅静默成功，发布为空操作。
type EventBus struct {
	bus     evbus.Bus
	enabled bool
}

// 编译时校验
var _ event.EventBus = (*EventBus)(nil)

// New 创建事件总线
func New(enabled bool) *EventBus {
	return &EventBus{
		bus:     evbus.New(),
		enabled: enabled,
	}
}

// Subscribe 同步订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.enabled {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 发布事件
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.enabled {
		return
	}
	eb.bus.Publish(string(eventType), args...)
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.enabled {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	if !eb.enabled {
		return
	}
	eb.bus.WaitAsync()
}
