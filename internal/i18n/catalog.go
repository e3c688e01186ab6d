// Package i18n localizes user-facing error messages. Messages are keyed by
// domain error code and available in English and Indonesian.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"crowdfund/internal/domain"
)

// Supported lists the locales with a full message set. The first entry is the fallback.
var Supported = []language.Tag{language.English, language.Indonesian}

var matcher = language.NewMatcher(Supported)

type entry struct {
	en string
	id string
}

var entries = map[domain.Code]entry{
	domain.CodeUnknown: {"Something went wrong.", "Terjadi kesalahan."},

	domain.CodeOwnerMismatch:       {"The campaign owner must be the connected account.", "Pemilik kampanye harus akun yang terhubung."},
	domain.CodeTitleRequired:       {"Title is required.", "Judul wajib diisi."},
	domain.CodeDescriptionRequired: {"Description is required.", "Deskripsi wajib diisi."},
	domain.CodeTargetInvalid:       {"Target must be a positive amount.", "Target harus berupa jumlah positif."},
	domain.CodeTargetTooSmall:      {"Target is below the minimum.", "Target di bawah batas minimum."},
	domain.CodeTargetTooLarge:      {"Target is above the maximum.", "Target melebihi batas maksimum."},
	domain.CodeDeadlineRequired:    {"Deadline is required.", "Tenggat wajib diisi."},
	domain.CodeDeadlineInvalid:     {"Deadline must be in the future.", "Tenggat harus di masa depan."},
	domain.CodeDeadlineTooSoon:     {"Deadline must be at least one day away.", "Tenggat minimal satu hari dari sekarang."},
	domain.CodeDeadlineTooFar:      {"Deadline must be within one year.", "Tenggat maksimal satu tahun dari sekarang."},
	domain.CodeImageInvalid:        {"Image must be an http or https URL.", "Gambar harus berupa URL http atau https."},
	domain.CodeCampaignIDInvalid:   {"Campaign id is invalid.", "ID kampanye tidak valid."},
	domain.CodeAccountInvalid:      {"Account address is invalid.", "Alamat akun tidak valid."},

	domain.CodeDonationAmountInvalid: {"Donation must be a positive amount.", "Donasi harus berupa jumlah positif."},
	domain.CodeDonationTooSmall:      {"Donation is below the minimum.", "Donasi di bawah batas minimum."},
	domain.CodeCampaignExpired:       {"This campaign has ended.", "Kampanye ini sudah berakhir."},
	domain.CodeCampaignClosed:        {"This campaign is closed.", "Kampanye ini sudah ditutup."},
	domain.CodeOwnCampaign:           {"You cannot donate to your own campaign.", "Anda tidak dapat berdonasi ke kampanye sendiri."},

	domain.CodeLedgerUnavailable:     {"Wallet or contract is not connected.", "Dompet atau kontrak belum terhubung."},
	domain.CodeTxRejected:            {"Transaction was rejected.", "Transaksi ditolak."},
	domain.CodeTxInsufficientFunds:   {"Insufficient funds for this transaction.", "Saldo tidak mencukupi untuk transaksi ini."},
	domain.CodeTxUnauthorized:        {"The wallet has not authorized this account.", "Dompet belum mengizinkan akun ini."},
	domain.CodeTxUnsupportedMethod:   {"The wallet does not support this request.", "Dompet tidak mendukung permintaan ini."},
	domain.CodeTxInternalNodeError:   {"The network node reported an internal error.", "Node jaringan mengalami kesalahan internal."},
	domain.CodeTxResourceUnavailable: {"A request is already pending in the wallet.", "Masih ada permintaan tertunda di dompet."},
	domain.CodeTxReverted:            {"The contract rejected the transaction.", "Kontrak menolak transaksi."},
	domain.CodeTxNetwork:             {"Network error while contacting the ledger.", "Kesalahan jaringan saat menghubungi ledger."},
	domain.CodeTxFailed:              {"Transaction failed.", "Transaksi gagal."},
	domain.CodeNotOwner:              {"Only the campaign owner can do this.", "Hanya pemilik kampanye yang dapat melakukan ini."},
	domain.CodeNotFound:              {"Campaign not found.", "Kampanye tidak ditemukan."},
}

// Catalog resolves localized messages for error codes.
type Catalog struct {
	builder *catalog.Builder
}

// NewCatalog builds the catalog from the built-in message set.
func NewCatalog() *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, e := range entries {
		_ = b.SetString(language.English, string(code), e.en)
		_ = b.SetString(language.Indonesian, string(code), e.id)
	}
	return &Catalog{builder: b}
}

// Match returns the supported tag that best fits the given locale
// preferences (BCP 47 tags or Accept-Language values).
func Match(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return Supported[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// Printer returns a printer for locale bound to the catalog.
func (c *Catalog) Printer(locale string) *message.Printer {
	return message.NewPrinter(Match(locale), message.Catalog(c.builder))
}

// Message returns the localized text for code. ok is false when the code has
// no entry.
func (c *Catalog) Message(locale string, code domain.Code) (string, bool) {
	if _, known := entries[code]; !known {
		return "", false
	}
	return c.Printer(locale).Sprintf(string(code)), true
}

// ErrorMessage picks the best message for err: the localized text of its
// code, else the error's own message.
func (c *Catalog) ErrorMessage(locale string, err error) string {
	if e, ok := domain.AsError(err); ok {
		if msg, ok := c.Message(locale, e.Code); ok && e.Code != domain.CodeUnknown {
			return msg
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
