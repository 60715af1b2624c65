package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator — интерфейс (удобно мокать в тестах)
type Generator interface {
	GenerateAgreement(data AgreementData) (string, error)
}

// AgreementGenerator — реализация на gofpdf.
type AgreementGenerator struct {
	RootDir  string // корень хранения, например "./files"
	FontPath string // путь до TTF с кириллицей
	fontName string
}

type AgreementData struct {
	RequestID    string
	Organization string
	Phone        string
	IIN          string
	ReasonType   string
	ReasonText   string
	DocumentType string
	CreatedAt    time.Time
}

func NewAgreementGenerator(rootDir, fontPath string) *AgreementGenerator {
	return &AgreementGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: "DejaVu",
	}
}

// AgreementFilename — детерминированное имя файла соглашения по обращению.
func AgreementFilename(requestID string) string {
	return fmt.Sprintf("agreement_%s.pdf", requestID)
}

func (g *AgreementGenerator) GenerateAgreement(data AgreementData) (string, error) {
	absPath, err := g.ensureTarget(AgreementFilename(data.RequestID))
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Соглашение по обращению %s", data.RequestID), false)
	pdf.SetAuthor("Служба медиации", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	g.addUTF8Font(pdf)
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "СОГЛАШЕНИЕ О ПРОВЕДЕНИИ МЕДИАЦИИ", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 12)
	sub := fmt.Sprintf("по обращению № %s  от  %s",
		data.RequestID,
		data.CreatedAt.Format("02.01.2006"),
	)
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)

	pdf.Ln(3)

	// ===== Стороны
	g.sectionTitle(pdf, "Стороны")
	g.kvLine(pdf, "Заявитель", maskPhone(data.Phone))
	if data.IIN != "" {
		g.kvLine(pdf, "ИИН заявителя", data.IIN)
	}
	g.kvLine(pdf, "Организация", data.Organization)
	pdf.Ln(2)
	g.hr(pdf)

	// ===== Предмет
	g.sectionTitle(pdf, "Предмет обращения")
	g.kvLine(pdf, "Категория", data.ReasonType)
	g.kvLine(pdf, "Тип документа", data.DocumentType)
	pdf.Ln(1)

	pdf.SetFont(g.fontName, "", 11)
	if data.ReasonText != "" {
		pdf.MultiCell(0, 6, data.ReasonText, "", "L", false)
		pdf.Ln(2)
	}
	g.hr(pdf)

	// ===== Условия
	g.sectionTitle(pdf, "Основные условия")
	pdf.SetFont(g.fontName, "", 11)
	terms := []string{
		"1. Стороны соглашаются на урегулирование спора с участием медиатора.",
		"2. Медиатор не принимает решения за Стороны и сохраняет нейтральность.",
		"3. Сведения, ставшие известными в ходе медиации, конфиденциальны.",
		"4. Соглашение вступает в силу с момента подписания Заявителем посредством кода подтверждения, направленного на его номер телефона.",
	}
	for _, t := range terms {
		pdf.MultiCell(0, 6, t, "", "L", false)
	}
	pdf.Ln(2)
	g.hr(pdf)

	// ===== Подписи
	g.sectionTitle(pdf, "Подписи")
	pdf.Ln(6)

	lineY := pdf.GetY()
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(80, 6, "Медиатор", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 6, "Заявитель", "", 1, "L", false, 0, "")

	pdf.SetLineWidth(0.3)
	pdf.Line(20, lineY+10, 100, lineY+10)
	pdf.SetY(lineY + 12)
	pdf.SetX(20)
	pdf.Cell(80, 5, "(подпись, ФИО)")
	pdf.SetY(lineY + 6)
	pdf.SetX(130)
	pdf.Line(130, lineY+10, 190, lineY+10)
	pdf.SetY(lineY + 12)
	pdf.SetX(130)
	pdf.Cell(80, 5, "(SMS-подтверждение)")

	// ===== Нумерация страниц
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10,
			fmt.Sprintf("Стр. %d/{nb}", pdf.PageNo()),
			"", 0, "C", false, 0, "",
		)
	})

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(filepath.Base(absPath)), nil
}

// ===== helpers =====

func (g *AgreementGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *AgreementGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *AgreementGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *AgreementGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename) // безопасность
	return filepath.Join(g.RootDir, filename), nil
}

func (g *AgreementGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

// maskPhone — в документ попадает маскированный номер: 7700***4567.
func maskPhone(p string) string {
	if len(p) != 11 {
		return p
	}
	return p[:4] + "***" + p[7:]
}
