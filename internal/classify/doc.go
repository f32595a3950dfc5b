// Package classify maps free-text KPI labels, as typed into the source
// spreadsheet or the page's table headers, onto the fixed set of KPI
// identifiers.
//
// Labels are lower-cased and stripped of combining diacritical marks before
// matching, so "Nível de Servicio" and "nivel de servicio" classify alike.
// Matching walks an ordered rule table and the first rule whose keywords are
// all present wins.
package classify
