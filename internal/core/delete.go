package core

import (
	"context"
	"slices"
	"strconv"

	"configedit/internal/presentation"
	"configedit/internal/xmldom"
	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// Delete removes a site, DSM, sensor or analog variable. Every element
// matching the target is removed from the document, since the schema lets
// an element be repeated; the domain tree drops the single object.
func (d *Document) Delete(ctx context.Context, target any) (domain.Result, error) {
	switch e := target.(type) {
	case *domain.Site:
		return d.deleteSite(ctx, e)
	case *domain.DSM:
		return d.deleteDSM(ctx, e)
	case *domain.Sensor:
		return d.deleteSensor(ctx, e)
	case *domain.Variable:
		return d.deleteVariable(ctx, e)
	}
	return domain.Result{}, mismatch("site, dsm, sensor or variable", target)
}

// DeleteAt removes the item shown at idx in the presentation tree.
func (d *Document) DeleteAt(ctx context.Context, idx presentation.Index) (domain.Result, error) {
	if !idx.IsValid() {
		return domain.Result{}, domain.ContextMismatchError{Want: "tree item", Got: "project"}
	}
	entity := d.model.Entity(idx)
	if entity == nil {
		return domain.Result{}, domain.NotFoundError{Entity: "item", Key: "row " + strconv.Itoa(idx.Row())}
	}
	return d.Delete(ctx, entity)
}

// removeMatching detaches every child of parent accepted by match. Each
// removal is recorded for rollback, last child first, so restoring in
// reverse puts every child back at its original position.
func removeMatching(t *tx, parent *etree.Element, match func(*etree.Element) bool) int {
	var hits []*etree.Element
	for _, el := range parent.ChildElements() {
		if match(el) {
			hits = append(hits, el)
		}
	}
	slices.Reverse(hits)
	for _, el := range hits {
		t.capture(el, nil)
		parent.RemoveChild(el)
	}
	return len(hits)
}

func (d *Document) deleteSite(ctx context.Context, site *domain.Site) (domain.Result, error) {
	project := site.Project()
	if project == nil {
		return domain.Result{}, domain.NotFoundError{Entity: domain.EntitySite, Key: site.Name}
	}
	return d.run(ctx, "delete_site", func(t *tx) error {
		root := d.dom.Root()
		n := removeMatching(t, root, func(el *etree.Element) bool {
			return xmldom.IsSiteTag(el.Tag) && xmldom.Attr(el, "name") == site.Name
		})
		if n == 0 {
			return domain.NotFoundError{Entity: domain.EntitySite, Key: site.Name}
		}
		prev := slices.Clone(project.Sites)
		project.RemoveSite(site)
		t.onUndo(func() error {
			project.Sites = nil
			for _, s := range prev {
				project.AddSite(s)
			}
			return nil
		})
		t.onCommit(func() {
			d.model.RemoveRow(project, site)
			d.dom.Forget(site)
		})
		t.record(domain.EntitySite, domain.ActionDelete, site.Name)
		return nil
	})
}

func (d *Document) deleteDSM(ctx context.Context, dsm *domain.DSM) (domain.Result, error) {
	site := dsm.Site()
	if site == nil {
		return domain.Result{}, domain.NotFoundError{Entity: domain.EntityDSM, Key: dsm.Name}
	}
	return d.run(ctx, "delete_dsm", func(t *tx) error {
		t.site = site
		siteEl, err := d.dom.NodeFor(site)
		if err != nil {
			return domain.InternalFaultError{Op: "delete dsm", Detail: "site element", Err: err}
		}
		id := strconv.FormatUint(uint64(dsm.ID), 10)
		n := removeMatching(t, siteEl, func(el *etree.Element) bool {
			return el.Tag == xmldom.TagDSM && xmldom.Attr(el, "id") == id
		})
		if n == 0 {
			return domain.NotFoundError{Entity: domain.EntityDSM, Key: id}
		}
		prev := slices.Clone(site.DSMs)
		site.RemoveDSM(dsm)
		t.onUndo(func() error {
			site.DSMs = nil
			for _, x := range prev {
				site.AddDSM(x)
			}
			return nil
		})
		t.onCommit(func() {
			d.model.RemoveRow(site, dsm)
			d.dom.Forget(dsm)
		})
		t.record(domain.EntityDSM, domain.ActionDelete, dsm.Name)
		return nil
	})
}

func (d *Document) deleteSensor(ctx context.Context, sensor *domain.Sensor) (domain.Result, error) {
	dsm := sensor.DSM()
	if dsm == nil {
		return domain.Result{}, domain.NotFoundError{Entity: domain.EntitySensor, Key: sensor.DeviceName}
	}
	return d.run(ctx, "delete_sensor", func(t *tx) error {
		t.site = dsm.Site()
		dsmEl, err := d.dom.NodeFor(dsm)
		if err != nil {
			return domain.InternalFaultError{Op: "delete sensor", Detail: "dsm element", Err: err}
		}
		n := removeMatching(t, dsmEl, func(el *etree.Element) bool {
			return xmldom.IsSensorTag(el.Tag) && xmldom.Attr(el, "devicename") == sensor.DeviceName
		})
		if n == 0 {
			return domain.NotFoundError{Entity: domain.EntitySensor, Key: sensor.DeviceName}
		}
		prev := slices.Clone(dsm.Sensors)
		dsm.RemoveSensor(sensor)
		t.onUndo(func() error {
			dsm.Sensors = nil
			for _, x := range prev {
				dsm.AddSensor(x)
			}
			return nil
		})
		t.onCommit(func() {
			d.model.RemoveRow(dsm, sensor)
			d.dom.Forget(sensor)
		})
		t.record(domain.EntitySensor, domain.ActionDelete, sensor.Name())
		return nil
	})
}

func (d *Document) deleteVariable(ctx context.Context, v *domain.Variable) (domain.Result, error) {
	smp := v.Sample()
	if smp == nil || smp.Sensor() == nil {
		return domain.Result{}, domain.NotFoundError{Entity: domain.EntityVariable, Key: v.Name}
	}
	sensor := smp.Sensor()
	if !sensor.Kind().IsAnalog() {
		return domain.Result{}, domain.ContextMismatchError{Want: "analog sensor", Got: sensor.Kind().String() + " sensor"}
	}
	name, sampleID := v.Name, smp.ID
	return d.run(ctx, "delete_variable", func(t *tx) error {
		t.site = sensor.Site()
		sensorEl, err := d.captureSensor(t, sensor)
		if err != nil {
			return err
		}
		smpEl := sampleElement(sensorEl, sampleID)
		if smpEl == nil {
			return domain.NotFoundError{Entity: domain.EntitySample, Key: strconv.FormatUint(uint64(sampleID), 10)}
		}
		removed := 0
		for _, el := range smpEl.SelectElements(xmldom.TagVariable) {
			if xmldom.Attr(el, "name") == name {
				smpEl.RemoveChild(el)
				removed++
			}
		}
		if removed == 0 {
			return domain.NotFoundError{Entity: domain.EntityVariable, Key: name}
		}
		if len(smpEl.SelectElements(xmldom.TagVariable)) == 0 {
			sensorEl.RemoveChild(smpEl)
		}
		if err := d.rederiveSensor(sensor, sensorEl); err != nil {
			return err
		}
		t.onCommit(func() { d.model.Refresh(sensor) })
		t.record(domain.EntityVariable, domain.ActionDelete, name)
		return nil
	})
}
