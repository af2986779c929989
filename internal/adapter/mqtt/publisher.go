package mqtt

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"

	"deyemon/internal/config"
	"deyemon/internal/core/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Publisher pushes snapshot fields to per-sensor state topics. It is a plain
// consumer of the snapshot API; acquisition never depends on it.
type Publisher struct {
	client    mqtt.Client
	baseTopic string
	logger    *zap.Logger
}

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("deyemon_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(payloadOffline)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0
	return opts
}

func NewPublisher(cfg *config.Config, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:    mqtt.NewClient(OptsFromConfig(cfg)),
		baseTopic: cfg.MQTT.BaseTopic,
		logger:    logger.With(zap.String("component", "mqtt")),
	}
}

func (p *Publisher) Connect() error {
	token := p.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	return p.publish(bridgeStateTopic(p.baseTopic), payloadOnline, true)
}

func (p *Publisher) Close() {
	_ = p.publish(bridgeStateTopic(p.baseTopic), payloadOffline, true)
	p.client.Disconnect(250)
}

// PublishSnapshot publishes the interesting snapshot fields to individual
// sensor topics plus the whole snapshot as JSON.
func (p *Publisher) PublishSnapshot(snap *domain.Snapshot) error {
	sensors := map[string]string{
		"pv_total_power":  formatFloat(snap.PVTotalPower),
		"battery_voltage": formatFloat(snap.BatteryVoltage),
		"battery_soc":     strconv.Itoa(snap.BatterySOC),
		"battery_power":   formatFloat(snap.BatteryPower),
		"grid_power":      formatFloat(snap.GridPower),
		"grid_voltage":    formatFloat(snap.GridVoltage),
		"load_power":      formatFloat(snap.LoadPower),
		"grid_state":      snap.Outage.State,
	}
	for id, value := range sensors {
		if err := p.publish(p.sensorStateTopic(id), value, false); err != nil {
			return err
		}
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.publish(fmt.Sprintf("%s/snapshot", p.baseTopic), string(blob), false)
}

func (p *Publisher) sensorStateTopic(sensorID string) string {
	return fmt.Sprintf("%s/sensor/%s/state", p.baseTopic, sensorID)
}

func (p *Publisher) publish(topic, payload string, retained bool) error {
	token := p.client.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
