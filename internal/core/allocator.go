package core

import (
	"slices"

	"configedit/pkg/domain"
)

// NextDSMID proposes an id for a new DSM in the selected site: one past the
// largest id below the wing threshold. When that would reach the threshold
// the lowest free id below it is used instead, and only when every id below
// the threshold is taken does the proposal fall into the wing range.
func (d *Document) NextDSMID(sel Selection) (uint32, error) {
	site := enclosingSite(sel.Handle)
	if site == nil {
		return 0, domain.ErrNoSiteSelected
	}
	wing := d.settings.WingDSMThreshold
	used := make(map[uint32]bool, len(site.DSMs))
	var top uint32
	for _, dsm := range site.DSMs {
		used[dsm.ID] = true
		if dsm.ID < wing {
			top = max(top, dsm.ID)
		}
	}
	if top+1 < wing {
		return top + 1, nil
	}
	for id := uint32(1); id < wing; id++ {
		if !used[id] {
			return id, nil
		}
	}
	id := wing
	for used[id] {
		id++
	}
	d.logger.Warn().Str("site", site.Name).Uint32("id", id).Msg("no DSM id left below the wing threshold")
	return id, nil
}

// NextSensorID proposes an id for a new sensor in the selected DSM: the
// largest sensor id plus the configured spacing.
func (d *Document) NextSensorID(sel Selection) (uint32, error) {
	dsm := enclosingDSM(sel.Handle)
	if dsm == nil {
		return 0, domain.ErrNoDSMSelected
	}
	var top uint32
	for _, s := range dsm.Sensors {
		top = max(top, s.ID)
	}
	return top + d.settings.SensorIDSpacing, nil
}

// AvailableA2DChannels lists the channels not yet claimed on the selected
// sensor. With a DSM as handle, the focused sensor is used when there is
// one; otherwise every channel is reported free.
func (d *Document) AvailableA2DChannels(sel Selection) []int {
	sensor, ok := sel.Handle.(*domain.Sensor)
	if !ok {
		sensor, _ = sel.Focus.(*domain.Sensor)
	}
	free := make([]int, 0, d.settings.A2DChannels)
	for ch := range d.settings.A2DChannels {
		free = append(free, ch)
	}
	if sensor == nil {
		return free
	}
	for _, v := range sensor.Variables() {
		if v.A2D == nil {
			continue
		}
		if i := slices.Index(free, v.A2D.Channel); i >= 0 {
			free = slices.Delete(free, i, i+1)
		}
	}
	return free
}
