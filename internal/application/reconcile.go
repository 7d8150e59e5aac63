package app

import (
	"fmt"

	"github.com/golang/geo/r2"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
)

// maxIdentityCandidates сколько штрихкодов читается для сопоставления кадра с держателем.
const maxIdentityCandidates = 2

// maxUnresolvedFrames после стольких кадров подряд без прочитанных кандидатов
// старый держатель заменяется новым.
const maxUnresolvedFrames = 3

type identity int

const (
	identityNew        identity = iota // другой держатель
	identitySame                       // тот же держатель, геометрия совпадает
	identityAdjusted                   // тот же держатель, геометрия перенесена с прошлого кадра
	identityUnresolved                 // кандидаты не прочитались
)

type identityMatch struct {
	slot    int // номер слота с этими данными в держателе
	barcode *entity.Barcode
}

// reconcile сопоставляет кадр с текущим держателем. Кандидаты читаются лениво:
// сначала штрихкоды, попавшие в ранее прочитанные слоты, затем остальные.
// attempt сдвигает выбор кандидатов, чтобы после неудачного кадра пробовать другие.
// Возвращает геометрию, по которой нужно объединять кадр.
func (s *Scanner) reconcile(geom geometry.Geometry, located []*entity.Barcode, read func(*entity.Barcode), attempt int) (geometry.Geometry, identity) {
	p := s.plate
	if p == nil || geom.Kind() != geometry.KindUnipuck || p.Kind() != geom.Kind() {
		return geom, identityNew
	}
	if p.ValidCount() == 0 {
		return geom, identitySame
	}

	var matches []identityMatch
	decoded := 0
	for _, bc := range identityCandidates(p, geom, located, attempt) {
		read(bc)
		if !bc.IsValid() {
			continue
		}
		decoded++
		if n := p.FindData(bc.Data()); n != 0 {
			matches = append(matches, identityMatch{slot: n, barcode: bc})
		}
	}

	if len(matches) == 0 {
		if decoded == 0 {
			return geom, identityUnresolved
		}
		return geom, identityNew
	}

	aligned := true
	for _, m := range matches {
		if geom.ContainingSlot(m.barcode.Center()) != m.slot {
			aligned = false
			break
		}
	}
	if aligned {
		return geom, identitySame
	}

	adjusted, err := adjustGeometry(p, geom, matches)
	if err != nil {
		s.log.Warn("scanner: geometry adjustment failed, treating as new plate", "plate_id", p.ID(), "error", err)
		return geom, identityNew
	}
	return adjusted, identityAdjusted
}

// identityCandidates выбирает до maxIdentityCandidates штрихкодов для сопоставления,
// начиная с окна номер attempt по кругу.
func identityCandidates(p *entity.Plate, geom geometry.Geometry, located []*entity.Barcode, attempt int) []*entity.Barcode {
	var preferred, rest []*entity.Barcode
	for _, bc := range located {
		n := geom.ContainingSlot(bc.Center())
		switch {
		case n == 0:
		case n <= p.SlotCount() && p.Slot(n).State() == entity.SlotValid:
			preferred = append(preferred, bc)
		default:
			rest = append(rest, bc)
		}
	}

	candidates := append(preferred, rest...)
	if len(candidates) <= maxIdentityCandidates {
		return candidates
	}
	start := (attempt * maxIdentityCandidates) % len(candidates)
	out := make([]*entity.Barcode, 0, maxIdentityCandidates)
	for i := 0; i < maxIdentityCandidates; i++ {
		out = append(out, candidates[(start+i)%len(candidates)])
	}
	return out
}

// adjustGeometry переносит геометрию держателя на текущий кадр преобразованием
// подобия по двум парам точек (старое положение → новое). Если прочитан только
// один общий штрихкод, второй парой служат центры держателя.
func adjustGeometry(p *entity.Plate, geom geometry.Geometry, matches []identityMatch) (geometry.Geometry, error) {
	old := p.Geometry()
	from1, to1 := lastPosition(p, matches[0].slot), matches[0].barcode.Center()
	from2, to2 := old.Center(), geom.Center()

	if len(matches) > 1 && matches[1].slot != matches[0].slot {
		from2, to2 = lastPosition(p, matches[1].slot), matches[1].barcode.Center()
	}

	t, err := geometry.SimilarityFromPairs(from1, from2, to1, to2)
	if err != nil && len(matches) > 1 {
		t, err = geometry.SimilarityFromPairs(from1, old.Center(), to1, geom.Center())
	}
	if err != nil {
		return nil, fmt.Errorf("similarity transform: %w", err)
	}

	adjusted := old.Transform(t)
	for _, m := range matches {
		if got := adjusted.ContainingSlot(m.barcode.Center()); got != m.slot {
			return nil, fmt.Errorf("%w: barcode of slot %d lands in slot %d", geometry.ErrAlignmentFailed, m.slot, got)
		}
	}
	return adjusted, nil
}

func lastPosition(p *entity.Plate, slot int) r2.Point {
	if pos, ok := p.Slot(slot).BarcodePosition(); ok {
		return pos
	}
	return p.Slot(slot).Bounds().Center
}
