package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/voxel-remesher/internal/vec"
)

// Типы событий сервиса
const (
	EventMeshRebuilt  = "MeshRebuilt"
	EventBlockChanged = "BlockChanged"
)

// MeshRebuilt публикуется после сохранения новой сетки чанка
type MeshRebuilt struct {
	Coords     vec.Vec3 `json:"coords"`
	Revision   uint64   `json:"revision"`
	Quads      int      `json:"quads"`
	DurationMs float64  `json:"duration_ms"`
}

// BlockChanged публикуется при изменении блока через сервис
type BlockChanged struct {
	Coords   vec.Vec3 `json:"coords"`
	Local    vec.Vec3 `json:"local"`
	BlockID  uint16   `json:"block_id"`
	Revision uint64   `json:"revision"`
}

// NewJSONEnvelope сериализует payload в JSON и упаковывает в конверт
func NewJSONEnvelope(source, eventType string, priority int, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("eventbus: %s: %w", eventType, err)
	}
	return NewEnvelope(source, eventType, priority, data), nil
}

// DecodePayload разбирает JSON-полезную нагрузку конверта
func DecodePayload(ev *Envelope, out any) error {
	if err := json.Unmarshal(ev.Payload, out); err != nil {
		return fmt.Errorf("eventbus: %s %s: %w", ev.EventType, ev.ID, err)
	}
	return nil
}
