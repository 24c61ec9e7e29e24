package awsquery

import (
	"encoding/xml"
	"net/http"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/events"
	"github.com/NVIDIA/cloudemu/store"
)

// NewSNS wires an AmazonSNS Query Service to engine. Publish fans a
// message out to every sqs-protocol subscription of the topic, reusing
// events.Dispatcher's SQS delivery path (SPEC_FULL.md §3's SNS
// supplement rides the same dispatch machinery EventBridge targets use).
func NewSNS(engine *store.Engine, dispatcher *events.Dispatcher) *Service {
	s := NewService("AmazonSNS")
	s.Handle("CreateTopic", handleCreateTopic(engine))
	s.Handle("DeleteTopic", handleDeleteTopic(engine))
	s.Handle("ListTopics", handleListTopics(engine))
	s.Handle("Subscribe", handleSubscribe(engine))
	s.Handle("Unsubscribe", handleUnsubscribe(engine))
	s.Handle("ListSubscriptionsByTopic", handleListSubscriptionsByTopic(engine))
	s.Handle("Publish", handlePublish(engine, dispatcher))
	return s
}

func handleCreateTopic(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		t, err := engine.CreateTopic(r.Context(), form.Get("Name"), form.Get("Attributes.entry.1.value"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"CreateTopicResponse"`
			Result  struct {
				TopicArn string `xml:"TopicArn"`
			} `xml:"CreateTopicResult"`
		}{Result: struct {
			TopicArn string `xml:"TopicArn"`
		}{TopicArn: t.ARN}})
	}
}

func handleDeleteTopic(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		if err := engine.DeleteTopic(r.Context(), form.Get("TopicArn")); err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"DeleteTopicResponse"`
		}{})
	}
}

func handleListTopics(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		topics, err := engine.ListTopics(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		type topicEntry struct {
			TopicArn string `xml:"TopicArn"`
		}
		entries := make([]topicEntry, len(topics))
		for i, t := range topics {
			entries[i] = topicEntry{TopicArn: t.ARN}
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"ListTopicsResponse"`
			Result  struct {
				Topics []topicEntry `xml:"Topics>member"`
			} `xml:"ListTopicsResult"`
		}{Result: struct {
			Topics []topicEntry `xml:"Topics>member"`
		}{Topics: entries}})
	}
}

func handleSubscribe(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		sub, err := engine.Subscribe(r.Context(), form.Get("TopicArn"), form.Get("Protocol"), form.Get("Endpoint"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"SubscribeResponse"`
			Result  struct {
				SubscriptionArn string `xml:"SubscriptionArn"`
			} `xml:"SubscribeResult"`
		}{Result: struct {
			SubscriptionArn string `xml:"SubscriptionArn"`
		}{SubscriptionArn: sub.ARN}})
	}
}

func handleUnsubscribe(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		if err := engine.Unsubscribe(r.Context(), form.Get("SubscriptionArn")); err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"UnsubscribeResponse"`
		}{})
	}
}

func handleListSubscriptionsByTopic(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		subs, err := engine.ListSubscriptionsByTopic(r.Context(), form.Get("TopicArn"))
		if err != nil {
			WriteError(w, err)
			return
		}
		type subEntry struct {
			SubscriptionArn string `xml:"SubscriptionArn"`
			Protocol        string `xml:"Protocol"`
			Endpoint        string `xml:"Endpoint"`
			TopicArn        string `xml:"TopicArn"`
		}
		entries := make([]subEntry, len(subs))
		for i, s := range subs {
			entries[i] = subEntry{SubscriptionArn: s.ARN, Protocol: s.Protocol, Endpoint: s.Endpoint, TopicArn: s.TopicARN}
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"ListSubscriptionsByTopicResponse"`
			Result  struct {
				Subscriptions []subEntry `xml:"Subscriptions>member"`
			} `xml:"ListSubscriptionsByTopicResult"`
		}{Result: struct {
			Subscriptions []subEntry `xml:"Subscriptions>member"`
		}{Subscriptions: entries}})
	}
}

// handlePublish delivers to every sqs-protocol subscription of the topic.
// Other protocols are acknowledged but not actually delivered, matching
// SPEC_FULL.md's note that SNS is a thin supplement riding EventBridge's
// dispatch machinery rather than a fully modeled fan-out service.
func handlePublish(engine *store.Engine, dispatcher *events.Dispatcher) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		topicARN := form.Get("TopicArn")
		message := form.Get("Message")
		if _, err := engine.GetTopic(r.Context(), topicARN); err != nil {
			WriteError(w, err)
			return
		}
		subs, err := engine.ListSubscriptionsByTopic(r.Context(), topicARN)
		if err != nil {
			WriteError(w, err)
			return
		}
		ev := events.Event{Source: topicARN, DetailType: "SNSMessage", Detail: cmn.NewValue(message), Time: cmn.NowRFC3339()}
		targets := make([]store.EventTarget, 0, len(subs))
		for _, sub := range subs {
			if sub.Protocol != "sqs" {
				continue
			}
			targets = append(targets, store.EventTarget{ARN: sub.Endpoint})
		}
		dispatcher.Dispatch(r.Context(), engine.Region(), ev, targets)
		WriteXML(w, struct {
			XMLName xml.Name `xml:"PublishResponse"`
			Result  struct {
				MessageId string `xml:"MessageId"`
			} `xml:"PublishResult"`
		}{Result: struct {
			MessageId string `xml:"MessageId"`
		}{MessageId: cmn.GenUUID()}})
	}
}
