package block

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]BlockBehavior)
)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = behavior
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// IsSolid сообщает, занимает ли блок ячейку для построения граней.
// Незарегистрированные ID считаются твёрдыми, воздух - никогда.
func IsSolid(id BlockID) bool {
	if id == AirBlockID {
		return false
	}
	behavior, exists := Get(id)
	if !exists {
		return true
	}
	return behavior.Solid()
}

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5
)
