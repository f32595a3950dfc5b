package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpiboard/pkg/contracts/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		want   domain.KPIID
		wantOK bool
	}{
		{"ltir with month", "LTIR Enero", domain.KPILTIR, true},
		{"reclamos", "Reclamos de clientes", domain.KPIReclamos, true},
		{"nivel accented", "Nível de Servicio", domain.KPIServicio, true},
		{"nivel plain", "nivel de servicio", domain.KPIServicio, true},
		{"servicio only", "Servicio al cliente", domain.KPIServicio, true},
		{"costo transformacion", "Costo de Transformación", domain.KPICostoTransf, true},
		{"costo bodega", "Costo Bodega", domain.KPIBodega, true},
		{"ejecucion plan", "Ejecución del Plan", domain.KPIPlan, true},
		{"auditorias", "AUDITORÍAS", domain.KPIAuditorias, true},
		{"auditor singular", "auditor interno", domain.KPIAuditorias, true},
		{"empty", "", "", false},
		{"header", "Indicador", "", false},
		{"costo alone", "Costo", "", false},
		{"plan alone", "Plan anual", "", false},
		{"ejecucion alone", "Ejecución", "", false},
		{"transform without costo", "Transformación", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.label)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_RuleOrder(t *testing.T) {
	tests := []struct {
		label string
		want  domain.KPIID
	}{
		{"LTIR y reclamos", domain.KPILTIR},
		{"reclamos de nivel", domain.KPIReclamos},
		{"costo del servicio de bodega", domain.KPIServicio},
		{"costo transformacion bodega", domain.KPICostoTransf},
		{"costo bodega ejecucion plan", domain.KPIBodega},
		{"ejecucion plan auditoria", domain.KPIPlan},
	}

	for _, tt := range tests {
		got, ok := Classify(tt.label)
		require.True(t, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}
}

func TestClassify_CompoundRulesDoNotCollide(t *testing.T) {
	bodega, ok := Classify("Costo Bodega")
	require.True(t, ok)
	transf, ok := Classify("Costo de Transformación")
	require.True(t, ok)

	assert.Equal(t, domain.KPIBodega, bodega)
	assert.Equal(t, domain.KPICostoTransf, transf)
	assert.NotEqual(t, bodega, transf)
}

func TestClassify_AccentAndCaseVariants(t *testing.T) {
	variants := map[domain.KPIID][]string{
		domain.KPIServicio:    {"Nível de Servicio", "NIVEL DE SERVICIO", "nivel de servício", "Nível"},
		domain.KPIPlan:        {"Ejecución Plan", "EJECUCIÓN PLAN", "ejecucion plan", "Ejecuçion plán"},
		domain.KPICostoTransf: {"Costo Transformación", "COSTO TRANSFORMACIÓN", "cóstó transfórm"},
		domain.KPIAuditorias:  {"Auditorías", "AUDITORIAS", "aúditor"},
	}

	for want, labels := range variants {
		for _, label := range labels {
			got, ok := Classify(label)
			require.True(t, ok, label)
			assert.Equal(t, want, got, label)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	labels := []string{"LTIR Enero", "Nível de Servicio", "Costo Bodega", "", "nada"}
	for _, label := range labels {
		first, firstOK := Classify(label)
		for i := 0; i < 5; i++ {
			got, ok := Classify(label)
			assert.Equal(t, first, got)
			assert.Equal(t, firstOK, ok)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nivel de servicio", Normalize("Nível de Servicio"))
	assert.Equal(t, "ejecucion", Normalize("EJECUCIÓN"))
	assert.Equal(t, "auditorias", Normalize("Auditorías"))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "n", Normalize("Ñ"))
	assert.Equal(t, "  costo  ", Normalize("  COSTO  "))
}

func TestRules_ReturnsCopy(t *testing.T) {
	r := Rules()
	require.Len(t, r, 7)
	assert.Equal(t, domain.AllKPIs()[0], r[0].ID)

	r[0].AllOf[0] = "mutated"
	again := Rules()
	assert.Equal(t, "ltir", again[0].AllOf[0])
}

func TestRule_Matches(t *testing.T) {
	or := Rule{ID: domain.KPIServicio, AnyOf: []string{"nivel", "servicio"}}
	assert.True(t, or.Matches("nivel"))
	assert.True(t, or.Matches("servicio"))
	assert.False(t, or.Matches("otro"))

	and := Rule{ID: domain.KPIBodega, AllOf: []string{"costo", "bodega"}}
	assert.True(t, and.Matches("costo de bodega"))
	assert.False(t, and.Matches("costo"))
	assert.False(t, and.Matches("bodega"))
}

func TestClassify_KPILabelsRoundTrip(t *testing.T) {
	for _, id := range domain.AllKPIs() {
		got, ok := Classify(id.Label())
		assert.True(t, ok, id.Label())
		assert.Equal(t, id, got, id.Label())
	}
}
