package main

import (
	"context"
	"flag"
	"log"
	"os"
	"reflect"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/comm/mqtt"
	rediscomm "github.com/robotalks/ftsense/pkg/comm/redis"
	"github.com/robotalks/ftsense/pkg/comm/websocket"
	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/msgs"
)

var (
	mqttURL  = "mqtt://localhost:1883/ftsense/"
	wsURL    string
	redisURL string
	channel  = rediscomm.DefaultChannel
	ref      = comm.SensorRef{Type: "+", ID: "+"}
)

func init() {
	if val := os.Getenv("FTSENSE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&wsURL, "ws", wsURL, "Websocket URL of a daemon, e.g. ws://localhost:8080/ws, instead of MQTT.")
	flag.StringVar(&redisURL, "redis", redisURL, "Redis URL, instead of MQTT.")
	flag.StringVar(&channel, "channel", channel, "Redis channel.")
	flag.StringVar(&ref.Type, "type", ref.Type, "Sensor type, + for any.")
	flag.StringVar(&ref.ID, "id", ref.ID, "Sensor ID, + for any.")
}

func printMsg(sensor string, msg msgs.SerializableMessage) {
	log.Printf("%s: [%s] %s", sensor,
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
		msg.String())
}

func watchMQTT(ctx context.Context) error {
	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		return err
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer q.Close()
	infoList, err := mqtt.Discover(ctx, q, mqtt.DefaultDiscoverTimeout)
	if err != nil {
		return err
	}
	for _, info := range infoList {
		log.Printf("%s: online %s %s", info.Ref.Name(), info.Meta.Port, info.Meta.Description)
	}
	return mqtt.Watch(ctx, q, ref, func(ref comm.SensorRef, msg msgs.SerializableMessage) {
		printMsg(ref.Name(), msg)
	})
}

func watchWebsocket(ctx context.Context) error {
	rw, err := websocket.Dial(wsURL)
	if err != nil {
		return err
	}
	return fx.RunWithContextCloser(ctx, rw, func() error {
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				return err
			}
			ev, msg, err := comm.DecodeEvent(pkt)
			if err != nil {
				log.Printf("bad event: %v", err)
				continue
			}
			printMsg(ev.Sensor, msg)
		}
	})
}

func watchRedis(ctx context.Context) error {
	client, err := rediscomm.Connect(ctx, redisURL)
	if err != nil {
		return err
	}
	defer client.Close()
	return rediscomm.Watch(ctx, client, channel, func(ev *comm.Event, msg msgs.SerializableMessage) {
		printMsg(ev.Sensor, msg)
	})
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	watch := watchMQTT
	switch {
	case wsURL != "":
		watch = watchWebsocket
	case redisURL != "":
		watch = watchRedis
	}
	runner := fx.NewRunner().HandleSignals().Go(fx.RunFunc(watch))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
