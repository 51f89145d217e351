package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// NotifyQueue 通知队列实现
// 投递动作由外部通知Worker消费，本服务只负责入队
type NotifyQueue struct {
	client *redis.Client
	prefix string
}

// NotifyMessage 队列中的通知消息
type NotifyMessage struct {
	MessageID string                 `json:"message_id"`
	TenantID  uint                   `json:"tenant_id"`
	UserID    uint                   `json:"user_id"`  // 接收人ID，0表示租户级通知
	Channel   string                 `json:"channel"`  // email / sms
	Template  string                 `json:"template"` // 通知模板名
	Params    map[string]interface{} `json:"params"`
	Created   int64                  `json:"created"`
}

// 通知模板常量
const (
	TemplateTenantWelcome   = "tenant_welcome"
	TemplateSettingsChanged = "settings_changed"
)

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewNotifyQueue 创建通知队列实例
func NewNotifyQueue(config *Config) *NotifyQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "repairhub:notify"
	}

	return &NotifyQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *NotifyQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *NotifyQueue) Ping() error {
	ctx := context.Background()
	return q.client.Ping(ctx).Err()
}

// Enqueue 将通知加入队列
func (q *NotifyQueue) Enqueue(tenantID, userID uint, channel, template string, params map[string]interface{}) (string, error) {
	ctx := context.Background()

	message := NotifyMessage{
		MessageID: uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Channel:   channel,
		Template:  template,
		Params:    params,
		Created:   time.Now().Unix(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("序列化通知消息失败: %v", err)
	}

	if err := q.client.LPush(ctx, q.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("通知入队失败: %v", err)
	}

	return message.MessageID, nil
}

// Dequeue 阻塞取出一条通知（供外部Worker使用）
func (q *NotifyQueue) Dequeue(timeout time.Duration) (*NotifyMessage, error) {
	ctx := context.Background()

	result, err := q.client.BRPop(ctx, timeout, q.queueKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时无消息
		}
		return nil, err
	}

	// BRPop返回 [key, value]
	if len(result) < 2 {
		return nil, fmt.Errorf("意外的BRPop返回: %v", result)
	}

	var message NotifyMessage
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		return nil, fmt.Errorf("反序列化通知消息失败: %v", err)
	}

	return &message, nil
}

// Length 队列长度
func (q *NotifyQueue) Length() (int64, error) {
	ctx := context.Background()
	return q.client.LLen(ctx, q.queueKey()).Result()
}

func (q *NotifyQueue) queueKey() string {
	return q.prefix + ":messages"
}
