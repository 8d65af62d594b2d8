package domain

const (
	//QueueName definition queue name
	QueueName = "attachment_scan"
)

// ScanJob 定義掃描工作訊息
type ScanJob struct {
	AttachmentID uint   `json:"attachment_id"`
	ObjectKey    string `json:"object_key"` // MinIO 上的 object key
	FileName     string `json:"file_name"`
}
