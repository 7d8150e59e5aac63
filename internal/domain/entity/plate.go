package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"puck-scanner/internal/domain/geometry"
)

// Plate состояние одного физического держателя. Слоты адресуются номером 1..N.
type Plate struct {
	id       uuid.UUID
	kind     geometry.Kind
	geometry geometry.Geometry
	slots    []Slot
	frames   int
}

// NewPlate создаёт держатель с новым идентификатором; все слоты в SlotNoResult.
// Геометрия обязана быть выровненной.
func NewPlate(g geometry.Geometry) *Plate {
	if g == nil {
		panic("plate: cannot assign slots from unaligned geometry")
	}
	p := &Plate{
		id:       uuid.New(),
		kind:     g.Kind(),
		geometry: g,
		slots:    make([]Slot, g.SlotCount()),
	}
	for i := range p.slots {
		p.slots[i] = Slot{number: i + 1, bounds: g.SlotBounds(i + 1)}
	}
	return p
}

func (p *Plate) ID() uuid.UUID               { return p.id }
func (p *Plate) Kind() geometry.Kind         { return p.kind }
func (p *Plate) Geometry() geometry.Geometry { return p.geometry }
func (p *Plate) SlotCount() int              { return len(p.slots) }

// FramesSeen количество кадров, объединённых с этим держателем.
func (p *Plate) FramesSeen() int { return p.frames }

// Slot возвращает копию слота по номеру (1..N).
func (p *Plate) Slot(number int) Slot {
	return p.slots[p.index(number)]
}

// Slots копии всех слотов по порядку номеров.
func (p *Plate) Slots() []Slot {
	out := make([]Slot, len(p.slots))
	copy(out, p.slots)
	return out
}

// Merge объединяет кадр с держателем: обновляет границы слотов по геометрии,
// связывает каждый слот с ближайшим найденным штрихкодом внутри его границ и
// читает штрихкоды неразрешённых слотов функцией read. Если read == nil,
// обновляются только положения.
func (p *Plate) Merge(g geometry.Geometry, barcodes []*Barcode, read func(*Barcode)) {
	p.setGeometry(g)
	p.frames++

	for number, bc := range p.associate(barcodes) {
		s := &p.slots[number-1]
		if read != nil && !s.IsResolved() {
			read(bc)
		}
		s.assign(bc)
	}
}

// Resolve записывает в слот штрихкод, найденный повторным поиском.
func (p *Plate) Resolve(number int, bc *Barcode) {
	p.slots[p.index(number)].assign(bc)
}

// MarkEmpty переводит слот без результата в SlotEmpty.
func (p *Plate) MarkEmpty(number int) bool {
	return p.slots[p.index(number)].markEmpty()
}

// FindData номер слота с прочитанными данными data или 0.
func (p *Plate) FindData(data string) int {
	for _, s := range p.slots {
		if s.state == SlotValid && s.Data() == data {
			return s.number
		}
	}
	return 0
}

// ValidCount количество прочитанных слотов.
func (p *Plate) ValidCount() int {
	return p.count(SlotValid)
}

// EmptyCount количество пустых слотов.
func (p *Plate) EmptyCount() int {
	return p.count(SlotEmpty)
}

// IsFull true, если каждый слот прочитан или пуст.
func (p *Plate) IsFull() bool {
	for _, s := range p.slots {
		if !s.IsResolved() {
			return false
		}
	}
	return true
}

// Unresolved номера слотов в состояниях SlotNoResult и SlotUnreadable.
func (p *Plate) Unresolved() []int {
	var out []int
	for _, s := range p.slots {
		if !s.IsResolved() {
			out = append(out, s.number)
		}
	}
	return out
}

// Clone глубокая копия для передачи за пределы цикла сканирования.
func (p *Plate) Clone() *Plate {
	c := *p
	c.slots = make([]Slot, len(p.slots))
	for i, s := range p.slots {
		c.slots[i] = s.clone()
	}
	return &c
}

// Report формирует отчёт по держателю.
func (p *Plate) Report(camera CameraPosition, at time.Time) PlateReport {
	r := PlateReport{
		PlateID:    p.id.String(),
		Camera:     camera,
		Kind:       string(p.kind),
		Complete:   p.IsFull(),
		ValidCount: p.ValidCount(),
		ScannedAt:  at,
		Slots:      make([]SlotReport, len(p.slots)),
	}
	for i, s := range p.slots {
		r.Slots[i] = SlotReport{Number: s.number, State: s.state.String(), Data: s.Data()}
	}
	return r
}

func (p *Plate) setGeometry(g geometry.Geometry) {
	if g == nil || g.SlotCount() != len(p.slots) {
		panic("plate: cannot assign slots from unaligned geometry")
	}
	p.geometry = g
	for i := range p.slots {
		p.slots[i].bounds = g.SlotBounds(i + 1)
	}
}

// associate для каждого слота выбирает ближайший к центру слота штрихкод.
func (p *Plate) associate(barcodes []*Barcode) map[int]*Barcode {
	best := make(map[int]*Barcode)
	for _, bc := range barcodes {
		number := p.geometry.ContainingSlot(bc.Center())
		if number == 0 {
			continue
		}
		center := p.slots[number-1].bounds.Center
		if cur, ok := best[number]; ok &&
			geometry.Distance(cur.Center(), center) <= geometry.Distance(bc.Center(), center) {
			continue
		}
		best[number] = bc
	}
	return best
}

func (p *Plate) count(state SlotState) int {
	n := 0
	for _, s := range p.slots {
		if s.state == state {
			n++
		}
	}
	return n
}

func (p *Plate) index(number int) int {
	if number < 1 || number > len(p.slots) {
		panic(fmt.Sprintf("plate: slot %d out of range 1..%d", number, len(p.slots)))
	}
	return number - 1
}
