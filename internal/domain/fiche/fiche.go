// Package fiche renders a person's career sheet as a PDF: identity,
// habilitations, affiliations and employment history on one page.
package fiche

import (
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"labadmin/internal/domain/affectation"
	"labadmin/internal/domain/emploi"
	"labadmin/internal/domain/personne"
)

type Service struct {
	personnes    *personne.Store
	affectations *affectation.Store
	emplois      *emploi.Service
}

func NewService(personnes *personne.Store, affectations *affectation.Store, emplois *emploi.Service) *Service {
	return &Service{personnes: personnes, affectations: affectations, emplois: emplois}
}

// Render writes the career sheet of a person to w. Returns
// personne.ErrNotFound for an unknown id.
func (s *Service) Render(ctx context.Context, w io.Writer, personneID int64) error {
	p, err := s.personnes.Get(ctx, personneID)
	if err != nil {
		return err
	}
	labos, err := s.affectations.ListLaboSpans(ctx, personneID, affectation.Window{})
	if err != nil {
		return err
	}
	structures, err := s.affectations.ListStructureSpans(ctx, personneID, affectation.Window{})
	if err != nil {
		return err
	}
	emplois, err := s.emplois.List(ctx, personneID)
	if err != nil {
		return err
	}
	emeritats, err := s.personnes.ListEmeritats(ctx, personneID)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("%s %s", p.Prenom, p.Nom))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	if p.DateNaissance != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Date de naissance : %s", *p.DateNaissance))
		pdf.Ln(7)
	}
	if p.NationaliteNom != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Nationalite : %s", *p.NationaliteNom))
		pdf.Ln(7)
	}
	pdf.Ln(3)

	if len(p.HDRs) > 0 {
		section(pdf, "HDR")
		for _, h := range p.HDRs {
			obtained := "date inconnue"
			if h.DateObtention != nil {
				obtained = *h.DateObtention
			}
			pdf.Cell(0, 7, fmt.Sprintf("Obtenue le %s", obtained))
			pdf.Ln(6)
		}
		pdf.Ln(3)
	}

	if len(emeritats) > 0 {
		section(pdf, "Emeritat")
		for _, e := range emeritats {
			kind := "sur demande"
			if e.DeDroit {
				kind = "de droit"
			}
			pdf.Cell(0, 7, fmt.Sprintf("Depuis le %s (%s, %d mois)", e.DateDebut, kind, e.DureeMois))
			pdf.Ln(6)
		}
		pdf.Ln(3)
	}

	if len(labos) > 0 {
		section(pdf, "Laboratoires")
		for _, span := range labos {
			pdf.Cell(0, 7, fmt.Sprintf("%s : %s", span.LaboratoireNom, period(span.DateDebut, span.DateFin)))
			pdf.Ln(6)
		}
		pdf.Ln(3)
	}

	if len(structures) > 0 {
		section(pdf, "Structures")
		for _, span := range structures {
			pdf.Cell(0, 7, fmt.Sprintf("%s : %s", span.StructureNom, period(span.DateDebut, span.DateFin)))
			pdf.Ln(6)
		}
		pdf.Ln(3)
	}

	if len(emplois) > 0 {
		section(pdf, "Emplois")
		for _, e := range emplois {
			pdf.Cell(0, 7, fmt.Sprintf("%s, %s : %s", e.Type, e.EtablissementNom, period(e.DateDebut, e.DateFin)))
			pdf.Ln(6)
		}
	}

	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
}

func period(start string, end *string) string {
	if end == nil {
		return fmt.Sprintf("depuis le %s", start)
	}
	return fmt.Sprintf("du %s au %s", start, *end)
}
