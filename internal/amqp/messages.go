package amqp

import (
	"time"

	"github.com/goccy/go-json"
)

// DatasetLoadedMessage announces that a loader run replaced the dashboard's
// data, so every cached query result is stale.
type DatasetLoadedMessage struct {
	DBPath    string    `json:"db_path"`
	Script    string    `json:"script"`
	Customers int64     `json:"customers"`
	Products  int64     `json:"products"`
	Orders    int64     `json:"orders"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetLoadedMessage stamps a message with the current time.
func NewDatasetLoadedMessage(dbPath, script string, customers, products, orders int64) *DatasetLoadedMessage {
	return &DatasetLoadedMessage{
		DBPath:    dbPath,
		Script:    script,
		Customers: customers,
		Products:  products,
		Orders:    orders,
		Timestamp: time.Now().UTC(),
	}
}

func (m *DatasetLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetLoadedMessageFromJSON(data []byte) (*DatasetLoadedMessage, error) {
	var msg DatasetLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
