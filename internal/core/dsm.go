package core

import (
	"context"
	"strconv"

	"configedit/internal/xmldom"
	"configedit/pkg/domain"

	"github.com/beevik/etree"
)

// DSMSpec is the operator input for a DSM.
type DSMSpec struct {
	Name     string
	ID       string
	Location string
}

// AddDSM creates a DSM in the selected site, with its IRIG card and sample
// output.
func (d *Document) AddDSM(ctx context.Context, sel Selection, spec DSMSpec) (*domain.DSM, domain.Result, error) {
	site, err := sel.site()
	if err != nil {
		return nil, domain.Result{}, err
	}
	id, err := validateDSMInfo(site, spec.Name, spec.ID, nil)
	if err != nil {
		return nil, domain.Result{}, err
	}
	var created *domain.DSM
	res, err := d.run(ctx, "add_dsm", func(t *tx) error {
		t.site = site
		siteEl, err := d.dom.NodeFor(site)
		if err != nil {
			return domain.InternalFaultError{Op: "add dsm", Detail: "site element", Err: err}
		}
		el := xmldom.NewDSMElement(spec.Name, id, spec.Location)
		insertAfterLast(siteEl, el, xmldom.TagDSM)
		t.added(el)

		dsm, err := d.dom.DeriveDSM(el)
		if err != nil {
			return err
		}
		site.AddDSM(dsm)
		t.onUndo(func() error {
			site.RemoveDSM(dsm)
			d.dom.Forget(dsm)
			return nil
		})
		t.onCommit(func() { d.model.AppendRow(site, dsm) })
		t.record(domain.EntityDSM, domain.ActionCreate, spec.Name)
		created = dsm
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// UpdateDSM renames, renumbers or relocates the selected DSM. Its sensors
// are left untouched.
func (d *Document) UpdateDSM(ctx context.Context, sel Selection, spec DSMSpec) (domain.Result, error) {
	dsm, err := sel.dsm()
	if err != nil {
		return domain.Result{}, err
	}
	site := dsm.Site()
	if site == nil {
		return domain.Result{}, domain.ErrNoSiteSelected
	}
	id, err := validateDSMInfo(site, spec.Name, spec.ID, dsm)
	if err != nil {
		return domain.Result{}, err
	}
	return d.run(ctx, "update_dsm", func(t *tx) error {
		t.site = site
		el, err := d.dom.NodeFor(dsm)
		if err != nil {
			return domain.InternalFaultError{Op: "update dsm", Detail: "dsm element", Err: err}
		}
		t.capture(el, func(restored *etree.Element) error {
			return d.rederiveDSM(dsm, restored)
		})
		xmldom.SetAttr(el, "name", spec.Name)
		xmldom.SetAttr(el, "id", strconv.FormatUint(uint64(id), 10))
		xmldom.SetOptionalAttr(el, "location", spec.Location)
		if err := d.rederiveDSM(dsm, el); err != nil {
			return err
		}
		t.record(domain.EntityDSM, domain.ActionUpdate, spec.Name)
		return nil
	})
}

// rederiveDSM refreshes the DSM's own fields from el, keeping its sensors.
func (d *Document) rederiveDSM(dsm *domain.DSM, el *etree.Element) error {
	derived, err := d.dom.DeriveDSM(el)
	if err != nil {
		return err
	}
	dsm.Assign(derived)
	return nil
}

// insertAfterLast places el after the last child of parent with the given
// tag, or at the end when there is none.
func insertAfterLast(parent, el *etree.Element, tag string) {
	var last *etree.Element
	for _, c := range parent.SelectElements(tag) {
		last = c
	}
	if last == nil {
		parent.AddChild(el)
		return
	}
	parent.InsertChildAt(last.Index()+1, el)
}

// insertBefore places el before the first child of parent with the given
// tag, or at the end when there is none.
func insertBefore(parent, el *etree.Element, tag string) {
	if first := parent.SelectElement(tag); first != nil {
		parent.InsertChildAt(first.Index(), el)
		return
	}
	parent.AddChild(el)
}
