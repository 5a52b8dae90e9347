package eventbus

// 브로드캐스트 중계 토픽의 기본 이름. 설정(broadcast.kafka.topic)으로 바꿀 수 있다.
const TopicBroadcastEvents = "chat-relay.broadcast.events"
