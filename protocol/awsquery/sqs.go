package awsquery

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/NVIDIA/cloudemu/store"
)

// NewSQS wires an AmazonSQS Query Service to engine.
func NewSQS(engine *store.Engine, endpoint string) *Service {
	s := NewService("AmazonSQS")
	s.Handle("CreateQueue", handleCreateQueue(engine, endpoint))
	s.Handle("GetQueueUrl", handleGetQueueURL(engine, endpoint))
	s.Handle("DeleteQueue", handleDeleteQueue(engine))
	s.Handle("ListQueues", handleListQueues(engine))
	s.Handle("SendMessage", handleSendMessage(engine))
	s.Handle("ReceiveMessage", handleReceiveMessage(engine))
	s.Handle("DeleteMessage", handleDeleteMessage(engine))
	s.Handle("ChangeMessageVisibility", handleChangeMessageVisibility(engine))
	return s
}

// queueNameFromURL recovers the queue name from its URL's final path
// segment, the way SQS Query actions that take QueueUrl (not QueueName)
// address a queue.
func queueNameFromURL(url string) string {
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return url
	}
	return url[idx+1:]
}

func handleCreateQueue(engine *store.Engine, endpoint string) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		name := form.Get("QueueName")
		vis := form.GetInt("Attribute.VisibilityTimeout", 0)
		q, err := engine.CreateQueue(r.Context(), name, endpoint, vis, 0, 0, 0)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"CreateQueueResponse"`
			Result  struct {
				QueueUrl string `xml:"QueueUrl"`
			} `xml:"CreateQueueResult"`
		}{Result: struct {
			QueueUrl string `xml:"QueueUrl"`
		}{QueueUrl: q.URL}})
	}
}

func handleGetQueueURL(engine *store.Engine, endpoint string) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		q, err := engine.GetQueue(r.Context(), form.Get("QueueName"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"GetQueueUrlResponse"`
			Result  struct {
				QueueUrl string `xml:"QueueUrl"`
			} `xml:"GetQueueUrlResult"`
		}{Result: struct {
			QueueUrl string `xml:"QueueUrl"`
		}{QueueUrl: q.URL}})
	}
}

func handleDeleteQueue(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		name := queueNameFromURL(form.Get("QueueUrl"))
		if err := engine.DeleteQueue(r.Context(), name); err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"DeleteQueueResponse"`
		}{})
	}
}

func handleListQueues(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		queues, err := engine.ListQueues(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		urls := make([]string, len(queues))
		for i, q := range queues {
			urls[i] = q.URL
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"ListQueuesResponse"`
			Result  struct {
				QueueUrls []string `xml:"QueueUrl"`
			} `xml:"ListQueuesResult"`
		}{Result: struct {
			QueueUrls []string `xml:"QueueUrl"`
		}{QueueUrls: urls}})
	}
}

func handleSendMessage(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		name := queueNameFromURL(form.Get("QueueUrl"))
		delay := form.GetInt("DelaySeconds", -1)
		msg, err := engine.SendMessage(r.Context(), name, form.Get("MessageBody"), "", delay)
		if err != nil {
			WriteError(w, err)
			return
		}
		md5 := ""
		if msg.MD5Body != nil {
			md5 = *msg.MD5Body
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"SendMessageResponse"`
			Result  struct {
				MessageId     string `xml:"MessageId"`
				MD5OfMessageBody string `xml:"MD5OfMessageBody"`
			} `xml:"SendMessageResult"`
		}{Result: struct {
			MessageId     string `xml:"MessageId"`
			MD5OfMessageBody string `xml:"MD5OfMessageBody"`
		}{MessageId: msg.ID, MD5OfMessageBody: md5}})
	}
}

type messageXML struct {
	MessageId     string `xml:"MessageId"`
	ReceiptHandle string `xml:"ReceiptHandle"`
	MD5OfBody     string `xml:"MD5OfBody"`
	Body          string `xml:"Body"`
}

func handleReceiveMessage(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		name := queueNameFromURL(form.Get("QueueUrl"))
		max := form.GetInt("MaxNumberOfMessages", 1)
		msgs, err := engine.ReceiveMessages(r.Context(), name, max)
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]messageXML, len(msgs))
		for i, m := range msgs {
			handle := ""
			if m.ReceiptHandle != nil {
				handle = *m.ReceiptHandle
			}
			md5 := ""
			if m.MD5Body != nil {
				md5 = *m.MD5Body
			}
			out[i] = messageXML{MessageId: m.ID, ReceiptHandle: handle, MD5OfBody: md5, Body: m.Body}
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"ReceiveMessageResponse"`
			Result  struct {
				Messages []messageXML `xml:"Message"`
			} `xml:"ReceiveMessageResult"`
		}{Result: struct {
			Messages []messageXML `xml:"Message"`
		}{Messages: out}})
	}
}

func handleDeleteMessage(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		name := queueNameFromURL(form.Get("QueueUrl"))
		if err := engine.DeleteMessage(r.Context(), name, form.Get("ReceiptHandle")); err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"DeleteMessageResponse"`
		}{})
	}
}

func handleChangeMessageVisibility(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, form Form) {
		name := queueNameFromURL(form.Get("QueueUrl"))
		timeout := form.GetInt("VisibilityTimeout", 30)
		if err := engine.ChangeMessageVisibility(r.Context(), name, form.Get("ReceiptHandle"), timeout); err != nil {
			WriteError(w, err)
			return
		}
		WriteXML(w, struct {
			XMLName xml.Name `xml:"ChangeMessageVisibilityResponse"`
		}{})
	}
}
