package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	decode "PPStore/tools/decode"
)

// ===== 客户端帧 =====
//
// 网关侧只认 auth/ping 两种入站帧；通知帧由路由侧构造下发。

const (
	FrameAuth = "auth"
	FramePing = "ping"

	FrameConnAck = "conn_ack"
	FrameAuthAck = "auth_ack"
	FramePong    = "pong"
)

type Frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame type missing")
	}
	return f, nil
}

type AuthPayload struct {
	Token    string `json:"token"`
	DeviceID string `json:"device_id,omitempty"`
}

func ExtractAuthPayload(f *Frame) (*AuthPayload, error) {
	if f == nil || f.Payload == nil {
		return nil, fmt.Errorf("auth payload missing")
	}
	return decode.DecodeMap[AuthPayload](f.Payload)
}

// ---- 构造若干服务端回执 ----

type ackFrame struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	ConnID    string `json:"conn_id,omitempty"`
	GatewayID string `json:"gateway_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

func BuildConnAck(connID, gatewayID string) []byte {
	b, _ := json.Marshal(ackFrame{Type: FrameConnAck, Ts: time.Now().UnixMilli(), ConnID: connID, GatewayID: gatewayID})
	return b
}

func BuildAuthAck(userID string) []byte {
	b, _ := json.Marshal(ackFrame{Type: FrameAuthAck, Ts: time.Now().UnixMilli(), UserID: userID})
	return b
}

func BuildPong() []byte {
	b, _ := json.Marshal(ackFrame{Type: FramePong, Ts: time.Now().UnixMilli()})
	return b
}
