package domain

// KPIID identifies one of the fixed KPI rows shown on the board
type KPIID string

const (
	KPILTIR        KPIID = "ltir"
	KPIReclamos    KPIID = "reclamos"
	KPIServicio    KPIID = "servicio"
	KPICostoTransf KPIID = "costo-transf"
	KPIBodega      KPIID = "bodega"
	KPIPlan        KPIID = "plan"
	KPIAuditorias  KPIID = "auditorias"
)

// AllKPIs returns every known KPI identifier in classification rule order
func AllKPIs() []KPIID {
	return []KPIID{
		KPILTIR,
		KPIReclamos,
		KPIServicio,
		KPICostoTransf,
		KPIBodega,
		KPIPlan,
		KPIAuditorias,
	}
}

// Valid reports whether id is one of the known identifiers
func (id KPIID) Valid() bool {
	for _, k := range AllKPIs() {
		if k == id {
			return true
		}
	}
	return false
}

// labels are the row captions used by the default board and when a grid has
// to be rebuilt from already extracted values. Each one classifies back to its KPI.
var labels = map[KPIID]string{
	KPILTIR:        "LTIR",
	KPIReclamos:    "Reclamos",
	KPIServicio:    "Nivel de Servicio",
	KPICostoTransf: "Costo de Transformación",
	KPIBodega:      "Costo Bodega",
	KPIPlan:        "Ejecución del Plan",
	KPIAuditorias:  "Auditorías",
}

// Label returns the human readable caption of the KPI
func (id KPIID) Label() string {
	if l, ok := labels[id]; ok {
		return l
	}
	return string(id)
}

// String implements fmt.Stringer
func (id KPIID) String() string {
	return string(id)
}

// SlotCount is the number of value cells every KPI row carries
const SlotCount = 10

// valueSlots are the five site codes, each with a target (meta) and actual (real) cell
var valueSlots = [SlotCount]string{
	"scz-meta", "scz-real",
	"lpz-meta", "lpz-real",
	"cbba-meta", "cbba-real",
	"tja-meta", "tja-real",
	"embol-meta", "embol-real",
}

// ValueSlots returns the ten slot names in left-to-right display order
func ValueSlots() []string {
	out := make([]string, SlotCount)
	copy(out, valueSlots[:])
	return out
}

// ValueRow holds the ten positional values of one KPI
type ValueRow [SlotCount]string

// Slot returns the value stored under the named slot and whether the name exists
func (v ValueRow) Slot(name string) (string, bool) {
	for i, s := range valueSlots {
		if s == name {
			return v[i], true
		}
	}
	return "", false
}

// Extraction maps each recognized KPI to the values extracted for it in one cycle
type Extraction map[KPIID]ValueRow

// Grid is one fetch cycle's worth of source cells, rows by columns
type Grid [][]string
