package model

// Row is one campaign line of the planning sheet.
type Row struct {
	ID                  string
	Name                string
	Brand               Brand
	Availability        Availability
	Price               string
	Gender              string
	AgeGroup            string
	Link                string
	Text1               string
	Text2               string
	Text3               string
	Text4               string
	Image               string
	LeadsPrevistos      string
	InvestimentoLiquido string
	CPLHistorico        string
}

// RowFromRecord maps a header-keyed CSV record onto a Row. Unknown columns are ignored.
func RowFromRecord(rec map[string]string) Row {
	return Row{
		ID:                  rec["id"],
		Name:                rec["name"],
		Brand:               Brand(Normalize(rec["brand"])),
		Availability:        Availability(rec["availability"]),
		Price:               rec["price"],
		Gender:              rec["gender"],
		AgeGroup:            rec["age_group"],
		Link:                rec["link"],
		Text1:               rec["text1"],
		Text2:               rec["text2"],
		Text3:               rec["text3"],
		Text4:               rec["text4"],
		Image:               rec["image"],
		LeadsPrevistos:      rec["leads_previstos"],
		InvestimentoLiquido: rec["investimento_liquido_total_mes"],
		CPLHistorico:        rec["cpl_historico"],
	}
}

func (r Row) Creative() Creative {
	return Creative{Text1: r.Text1, Text2: r.Text2, Text3: r.Text3, Text4: r.Text4, Image: r.Image}
}
