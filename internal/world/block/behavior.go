package block

// BlockBehavior определяет свойства типа блока, важные для построения сетки
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// Solid - участвует ли блок в поле занятости (вода и воздух - нет)
	Solid() bool
}
