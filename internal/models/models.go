package models

// Metadata is carried on every request and copied onto every persisted row.
type Metadata struct {
	UserID    string `gorm:"column:user_id;size:128;index" json:"user_id"`
	WorkerID  string `gorm:"column:worker_id;size:128" json:"worker_id"`
	Timestamp string `gorm:"column:timestamp;size:128" json:"timestamp"`
	Version   string `gorm:"column:version;size:25" json:"version"`
	Browser   string `gorm:"column:browser;size:10" json:"browser"`
}

// User is one study participant, written once at registration.
type User struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID      string `gorm:"column:user_id;size:128;index" json:"user_id"`
	Browser     string `gorm:"column:browser;size:10" json:"browser"`
	Consent     bool   `gorm:"column:consent" json:"consent"`
	ConsentFB   bool   `gorm:"column:consent_fb" json:"consent_fb"`
	InstallTime string `gorm:"column:install_time;size:128" json:"install_time"`
	Version     string `gorm:"column:version;size:10" json:"version"`
}

func (User) TableName() string { return "user" }

// GenericRecord stores payloads whose kind has no dedicated table.
type GenericRecord struct {
	ID       uint     `gorm:"primaryKey;autoIncrement" json:"-"`
	API      string   `gorm:"column:api;size:128" json:"api"`
	Data     LongText `gorm:"column:data" json:"data"` // base64url(JSON)
	Metadata `gorm:"embedded"`
}

func (GenericRecord) TableName() string { return "data" }

// BrowserHistoryVisit is one (history item, visit) pair. HVID is the
// composite dedup key; uniqueness is enforced by skipping, not by a constraint.
type BrowserHistoryVisit struct {
	SQLID            uint   `gorm:"column:sql_id;primaryKey;autoIncrement" json:"-"`
	HVID             string `gorm:"column:hv_id;size:260;index" json:"hv_id"`
	ItemID           string `gorm:"column:item_id;size:128" json:"id"`
	VisitID          string `gorm:"column:visit_id;size:128" json:"visitId"`
	URL              string `gorm:"column:url;type:text" json:"url"`
	VisitTime        int64  `gorm:"column:visit_time" json:"visitTime"`
	ReferringVisitID string `gorm:"column:referring_visit_id;size:128" json:"referringVisitId"`
	Transition       string `gorm:"column:transition;size:25" json:"transition"`
	Metadata         `gorm:"embedded"`
}

func (BrowserHistoryVisit) TableName() string { return "browser_history" }

type WebsiteHistory struct {
	ID       uint     `gorm:"primaryKey;autoIncrement" json:"-"`
	URL      string   `gorm:"column:url;type:text" json:"url"`
	Name     string   `gorm:"column:name;size:25" json:"name"`
	HTML     LongText `gorm:"column:html" json:"html"`
	Metadata `gorm:"embedded"`
}

func (WebsiteHistory) TableName() string { return "website_history" }

type Snapshot struct {
	ID        uint     `gorm:"primaryKey;autoIncrement" json:"-"`
	Wintab    string   `gorm:"column:wintab;size:128" json:"wintab"`
	Incognito bool     `gorm:"column:incognito" json:"incognito"`
	URL       string   `gorm:"column:url;type:text" json:"url"`
	HTML      LongText `gorm:"column:html" json:"html"`
	Metadata  `gorm:"embedded"`
}

func (Snapshot) TableName() string { return "snapshots" }

// Activity is a tab activation/update or DOM mutation capture. The list
// fields hold JSON text.
type Activity struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	Wintab         string     `gorm:"column:wintab;size:128" json:"wintab"`
	LastWintab     string     `gorm:"column:lastwt;size:128" json:"lastwt"`
	Type           string     `gorm:"column:type;size:25" json:"type"`
	URL            string     `gorm:"column:url;type:text" json:"url"`
	HTML           LongText   `gorm:"column:html" json:"html"`
	Links          MediumText `gorm:"column:links" json:"links"`
	TweetIDs       string     `gorm:"column:tweet_ids;type:text" json:"tweet_ids"`
	YoutubeIframes string     `gorm:"column:youtube_iframes;type:text" json:"youtube_iframes"`
	Metadata       `gorm:"embedded"`
}

func (Activity) TableName() string { return "activity" }

// All lists every table the collector writes, in creation order.
func All() []any {
	return []any{
		&User{},
		&GenericRecord{},
		&BrowserHistoryVisit{},
		&WebsiteHistory{},
		&Snapshot{},
		&Activity{},
	}
}
