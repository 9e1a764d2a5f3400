package backend

import "time"

type CertificateStatus string

const (
	StatusPending  CertificateStatus = "pending"
	StatusApproved CertificateStatus = "approved"
	StatusRejected CertificateStatus = "rejected"
)

func (s CertificateStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type BreederCertificate struct {
	ID          string            `json:"id"`
	BreederName string            `json:"breederName"`
	Email       string            `json:"email"`
	KennelName  string            `json:"kennelName,omitempty"`
	FileURL     string            `json:"fileUrl"`
	Status      CertificateStatus `json:"status"`
	Note        string            `json:"note,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
	ReviewedAt  *time.Time        `json:"reviewedAt,omitempty"`
}

// CertificateUpload is the public upload form. File is streamed as-is.
type CertificateUpload struct {
	BreederName string
	Email       string
	KennelName  string
	FileName    string
	ContentType string
	File        []byte
}

type Review struct {
	Status CertificateStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
}

type DeliveryDate struct {
	ID        string `json:"id"`
	Region    string `json:"region"`
	Date      string `json:"date"`
	Cutoff    string `json:"cutoff,omitempty"`
	Available bool   `json:"available"`
}

type RecallQuery struct {
	Query string
	Batch string
}

type RecallProduct struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Batch       string   `json:"batch"`
	BestBefore  string   `json:"bestBefore,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Customers   int      `json:"customers"`
}

type TraderCreditLine struct {
	TraderID   string  `json:"traderId"`
	Name       string  `json:"name"`
	CouponCode string  `json:"couponCode"`
	Orders     int     `json:"orders"`
	Sales      float64 `json:"sales"`
	Credit     float64 `json:"credit"`
}

type TraderCreditReport struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Lines       []TraderCreditLine `json:"lines"`
	TotalSales  float64            `json:"totalSales"`
	TotalCredit float64            `json:"totalCredit"`
}

type Ingredient struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Supplier  string  `json:"supplier"`
	Address   string  `json:"address"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
